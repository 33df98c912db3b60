package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockrpc"
)

func TestPutGet_RoundTrip(t *testing.T) {
	s := New(16, 32, 0, -1, nil)

	data := make([]byte, 32)
	copy(data, "hello block")
	require.NoError(t, s.Put(3, data))

	got, corrupted, err := s.Get(3)
	require.NoError(t, err)
	assert.False(t, corrupted)
	assert.Equal(t, data, got)
}

func TestGet_OutOfRange(t *testing.T) {
	s := New(4, 32, 0, -1, nil)
	_, _, err := s.Get(10)
	assert.Error(t, err)
}

func TestPut_WrongSize(t *testing.T) {
	s := New(4, 32, 0, -1, nil)
	err := s.Put(0, make([]byte, 16))
	assert.Error(t, err)
}

func TestGet_InjectedCorruption(t *testing.T) {
	s := New(4, 32, 0, 1, nil) // block 1 always corrupt
	_, corrupted, err := s.Get(1)
	require.NoError(t, err)
	assert.True(t, corrupted)

	// other blocks are unaffected.
	_, corrupted, err = s.Get(0)
	require.NoError(t, err)
	assert.False(t, corrupted)
}

func TestGet_ChecksumMismatchDetected(t *testing.T) {
	s := New(4, 32, 0, -1, nil)
	require.NoError(t, s.Put(2, make([]byte, 32)))

	// simulate a bit-flip on disk behind the checksum's back.
	s.blocks[2][0] ^= 0xFF

	_, corrupted, err := s.Get(2)
	require.NoError(t, err)
	assert.True(t, corrupted)
}

func TestRSM_ReturnsOldValueAndLocks(t *testing.T) {
	s := New(4, 32, 0, -1, nil)
	original := make([]byte, 32)
	copy(original, "before")
	require.NoError(t, s.Put(0, original))

	old, err := s.RSM(0)
	require.NoError(t, err)
	assert.Equal(t, original, old)

	locked, _, err := s.Get(0)
	require.NoError(t, err)
	for _, b := range locked {
		assert.Equal(t, byte(0x01), b)
	}
}

func TestBlockService_GetPutRoundTrip(t *testing.T) {
	store := New(4, 32, 0, -1, nil)
	svc := &BlockService{Store: store}

	data := make([]byte, 32)
	copy(data, "via rpc")

	var putReply blockrpc.PutReply
	require.NoError(t, svc.Put(blockrpc.PutArgs{BlockIndex: 1, Data: data}, &putReply))
	assert.Equal(t, 0, putReply.Status)

	var getReply blockrpc.GetReply
	require.NoError(t, svc.Get(blockrpc.GetArgs{BlockIndex: 1}, &getReply))
	assert.Equal(t, data, getReply.Data)
	assert.False(t, getReply.Corrupted)
}

package fsdemo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockstore"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/raidclient"
)

// memServer is a minimal in-memory raidclient.ServerProxy used only to
// exercise the fsdemo layer end to end; it never fails or corrupts,
// unlike raidclient's own fault-injecting fake.
type memServer struct {
	blockSize int
	blocks    map[int][]byte
}

func newMemServer(blockSize int) *memServer {
	return &memServer{blockSize: blockSize, blocks: map[int][]byte{}}
}

func (m *memServer) Get(idx int) ([]byte, bool, error) {
	if b, ok := m.blocks[idx]; ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, false, nil
	}
	return make([]byte, m.blockSize), false, nil
}

func (m *memServer) Put(idx int, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[idx] = cp
	return nil
}

func newTestFacade(t *testing.T) *blockstore.Facade {
	t.Helper()
	const blockSize = 256
	const totalBlocks = 512
	proxies := make([]raidclient.ServerProxy, 4)
	for i := range proxies {
		proxies[i] = newMemServer(blockSize)
	}
	client, err := raidclient.New(proxies, blockSize, totalBlocks, nil)
	require.NoError(t, err)
	return blockstore.New(client, blockSize, totalBlocks, blockstore.Geometry{
		InodeSize:               inodeEncodedSize,
		MaxNumInodes:            16,
		MaxFilename:             28,
		InodeNumberDirentrySize: 0,
	})
}

func newTestFilesystem(t *testing.T) *Filesystem {
	t.Helper()
	facade := newTestFacade(t)
	fs, err := New(facade, 256, 512, 16, 28)
	require.NoError(t, err)
	require.NoError(t, fs.Format())
	return fs
}

func TestCreateWriteReadFile(t *testing.T) {
	fs := newTestFilesystem(t)

	ino, status, err := fs.Create(RootInode, "hello.txt", InodeTypeFile)
	require.NoError(t, err)
	require.Equal(t, Success, status)

	n, status, err := fs.Write(ino, 0, []byte("hello, raid5"))
	require.NoError(t, err)
	require.Equal(t, Success, status)
	assert.Equal(t, len("hello, raid5"), n)

	data, status, err := fs.Read(ino, 0, 64)
	require.NoError(t, err)
	require.Equal(t, Success, status)
	assert.Equal(t, "hello, raid5", string(data))
}

func TestWriteSpansMultipleBlocks(t *testing.T) {
	fs := newTestFilesystem(t)
	ino, _, err := fs.Create(RootInode, "big.bin", InodeTypeFile)
	require.NoError(t, err)

	payload := make([]byte, 700) // spans 3 blocks at blockSize=256
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	n, status, err := fs.Write(ino, 0, payload)
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, len(payload), n)

	data, status, err := fs.Read(ino, 0, len(payload))
	require.NoError(t, err)
	require.Equal(t, Success, status)
	assert.Equal(t, payload, data)
}

func TestCreate_DuplicateName(t *testing.T) {
	fs := newTestFilesystem(t)
	_, _, err := fs.Create(RootInode, "dup", InodeTypeFile)
	require.NoError(t, err)

	_, status, err := fs.Create(RootInode, "dup", InodeTypeFile)
	require.NoError(t, err)
	assert.Equal(t, ErrCreateAlreadyExists, status)
}

func TestWrite_OffsetBeyondSize(t *testing.T) {
	fs := newTestFilesystem(t)
	ino, _, err := fs.Create(RootInode, "f", InodeTypeFile)
	require.NoError(t, err)

	_, status, err := fs.Write(ino, 10, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, ErrWriteOffsetLargerSize, status)
}

func TestUnlink_RemovesFile(t *testing.T) {
	fs := newTestFilesystem(t)
	ino, _, err := fs.Create(RootInode, "temp", InodeTypeFile)
	require.NoError(t, err)
	_, _, err = fs.Write(ino, 0, []byte("bye"))
	require.NoError(t, err)

	status, err := fs.Unlink(RootInode, "temp")
	require.NoError(t, err)
	assert.Equal(t, Success, status)

	found, err := fs.lookup(RootInode, "temp")
	require.NoError(t, err)
	assert.Equal(t, int32(-1), found)
}

func TestUnlink_NotFound(t *testing.T) {
	fs := newTestFilesystem(t)
	status, err := fs.Unlink(RootInode, "nope")
	require.NoError(t, err)
	assert.Equal(t, ErrUnlinkNotFound, status)
}

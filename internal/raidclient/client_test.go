package raidclient

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 128
const testTotalBlocks = 256 // N=4, D=3, matches spec.md §8 worked examples

func newTestClient(t *testing.T, n int) (*Client, []*fakeServer, *bytes.Buffer) {
	t.Helper()
	servers, proxies := newFakeCluster(n, testBlockSize)
	c, err := New(proxies, testBlockSize, testTotalBlocks, nil)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	c.Out = out
	return c, servers, out
}

func padBlock(s string) []byte {
	out := make([]byte, testBlockSize)
	copy(out, s)
	return out
}

// P2: read-after-write under healthy servers.
func TestGet_ReadAfterWrite_Healthy(t *testing.T) {
	c, _, _ := newTestClient(t, 4)

	require.NoError(t, c.Put(5, []byte("hello")))
	data, err := c.Get(5)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("hello")))
}

// Scenario 2: Put(5, "hello") then Get(5) returns "hello" + 123 zero bytes.
func TestScenario_HealthyRoundTrip(t *testing.T) {
	c, _, _ := newTestClient(t, 4)
	require.NoError(t, c.Put(5, []byte("hello")))
	data, err := c.Get(5)
	require.NoError(t, err)
	require.Len(t, data, 128)
	assert.Equal(t, "hello", strings.TrimRight(string(data[:5]), "\x00"))
	for _, b := range data[5:] {
		assert.Equal(t, byte(0), b)
	}
}

// P3: parity invariant after a sequence of healthy Puts.
func TestParityInvariant_AfterWrites(t *testing.T) {
	c, _, _ := newTestClient(t, 4)

	require.NoError(t, c.Put(0, []byte("a")))
	require.NoError(t, c.Put(1, []byte("b")))

	bad := c.VerifyAll()
	assert.Empty(t, bad)
}

// Scenario 3: parity after two writes in the same stripe.
func TestScenario_ParityAfterTwoWritesSameStripe(t *testing.T) {
	c, servers, _ := newTestClient(t, 4)

	require.NoError(t, c.Put(0, []byte("a")))
	require.NoError(t, c.Put(1, []byte("b")))

	// stripe 0, parity server 0, data servers [1,2,3]; block 0 -> server 1,
	// block 1 -> server 2, server 3 never written (zero).
	expected := padBlock("a")
	b := padBlock("b")
	for i := range expected {
		expected[i] ^= b[i]
	}

	actual, _, err := servers[0].Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(expected, actual))
}

// P4: single-fault read after killing one server.
func TestGet_SingleServerDown_Reconstructs(t *testing.T) {
	c, servers, out := newTestClient(t, 4)

	require.NoError(t, c.Put(0, []byte("a")))
	servers[1].setDisconnected(true) // data server for block 0

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("a")))
	assert.Contains(t, out.String(), "SERVER_DISCONNECTED GET 0")
}

// Scenario 4.
func TestScenario_ReadUnderServerFailure(t *testing.T) {
	c, servers, out := newTestClient(t, 4)
	require.NoError(t, c.Put(0, []byte("a")))
	servers[1].setDisconnected(true)

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "SERVER_DISCONNECTED GET 0", strings.TrimSpace(out.String()))
	assert.True(t, equalBlocks(data, padBlock("a")))
}

// P5 / Scenario 5+6: degraded write then repair restores consistency.
func TestPut_DataServerDown_DegradedThenRepair(t *testing.T) {
	c, servers, out := newTestClient(t, 4)

	servers[1].setDisconnected(true) // data server for block 0
	err := c.Put(0, []byte("a"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "SERVER_DISCONNECTED PUT 0")

	servers[1].setDisconnected(false)
	// server 1 still has stale/no data for stripe 0 until repaired.
	require.NoError(t, c.Repair(1))

	assert.Empty(t, c.VerifyAll())

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("a")))
}

// P6: corruption on the data server recovers via parity.
func TestGet_CorruptedDataServer_Reconstructs(t *testing.T) {
	c, servers, out := newTestClient(t, 4)
	require.NoError(t, c.Put(0, []byte("a")))

	servers[1].corrupt(0) // data server for block 0, stripe 0

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("a")))
	assert.Contains(t, out.String(), "CORRUPTED_BLOCK 0")
}

// P7: two faults in one stripe fail cleanly.
func TestGet_TwoFaultsInStripe_Fails(t *testing.T) {
	c, servers, _ := newTestClient(t, 4)
	require.NoError(t, c.Put(0, []byte("a")))

	servers[1].setDisconnected(true) // data server for block 0
	servers[0].setDisconnected(true) // parity server for stripe 0

	_, err := c.Get(0)
	require.Error(t, err)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailureTwoFaults, f.Kind)
}

// P8: repair is idempotent.
func TestRepair_Idempotent(t *testing.T) {
	c, servers, _ := newTestClient(t, 4)
	require.NoError(t, c.Put(0, []byte("a")))

	servers[1].setDisconnected(true)
	require.NoError(t, c.Put(1, []byte("b"))) // stripe 0, server 2
	servers[1].setDisconnected(false)

	require.NoError(t, c.Repair(1))
	snapshot := map[int][]byte{}
	for k, v := range servers[1].blocks {
		cp := make([]byte, len(v))
		copy(cp, v)
		snapshot[k] = cp
	}

	require.NoError(t, c.Repair(1))
	for k, v := range snapshot {
		assert.True(t, equalBlocks(v, servers[1].blocks[k]))
	}
	assert.Empty(t, c.FailedServers())
}

// Both data and parity servers down fails with FailureDataLoss. The client
// has not yet marked either as failed, so the failure is found mid-write:
// the old-parity read fails (Case C), then the data write fails too.
func TestPut_BothServersDown_FailsWithDataLoss(t *testing.T) {
	c, servers, _ := newTestClient(t, 4)
	servers[1].setDisconnected(true) // data server for block 0
	servers[0].setDisconnected(true) // parity server for stripe 0

	err := c.Put(0, []byte("a"))
	require.Error(t, err)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailureDataLoss, f.Kind)
}

// Parity-write failure after data-write success is still reported as a
// successful Put (spec.md §4.3.2, §7): Get(p) for old parity still
// succeeds, Put(d) succeeds, only the final Put(p) fails.
func TestPut_ParityWriteFailsAfterDataWrite_StillSuccess(t *testing.T) {
	c, servers, out := newTestClient(t, 4)
	servers[0].setDisconnectPut(true) // parity server for stripe 0, reads still work

	err := c.Put(0, []byte("a"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "SERVER_DISCONNECTED PUT 0")

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("a")))
}

// Parity server fully down: the old-parity read in Case A fails, p is
// marked failed, and the write completes via Case C (data only).
func TestPut_DegradedCase_ParityDown(t *testing.T) {
	c, servers, out := newTestClient(t, 4)
	servers[0].setDisconnected(true) // parity server for stripe 0

	err := c.Put(0, []byte("a"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "SERVER_DISCONNECTED PUT 0")

	data, err := c.Get(0)
	require.NoError(t, err)
	assert.True(t, equalBlocks(data, padBlock("a")))
}

func TestGet_OutOfRange(t *testing.T) {
	c, _, _ := newTestClient(t, 4)
	_, err := c.Get(-1)
	require.Error(t, err)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailureOutOfRange, f.Kind)
}

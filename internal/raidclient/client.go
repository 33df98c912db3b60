// Package raidclient implements C3 of spec.md: the RAID-5 client that
// orchestrates reads, parity-maintaining writes, degraded-mode
// operation, failed-server tracking, consistency verification, and
// repair. This is the heart of the system (spec.md §4.3).
package raidclient

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/metrics"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/stripe"
)

// Client holds one ServerProxy per server index and the fail-fast
// failed_servers memory described in spec.md §3/§5. It is not safe for
// concurrent use by design (spec.md §5: single-client, single-threaded).
type Client struct {
	proxies     []ServerProxy
	blockSize   int
	totalBlocks int

	mu     sync.Mutex
	failed map[int]bool

	// SessionID correlates this client's log lines across a run; it has
	// no durability or protocol meaning (spec.md §5: failed_servers and
	// everything about a client session is memory-only).
	SessionID string

	metrics *metrics.ClientMetrics

	// Out receives the observable stdout markers from spec.md §6
	// (SERVER_DISCONNECTED / CORRUPTED_BLOCK). Defaults to os.Stdout;
	// tests substitute a buffer.
	Out io.Writer
}

// New creates a Client over the given per-server proxies. len(proxies)
// must equal N (spec.md §3, N >= 3).
func New(proxies []ServerProxy, blockSize, totalBlocks int, m *metrics.ClientMetrics) (*Client, error) {
	if len(proxies) < 3 {
		return nil, fmt.Errorf("raidclient: need at least 3 servers, got %d", len(proxies))
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("raidclient: block size must be positive")
	}
	return &Client{
		proxies:     proxies,
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		failed:      map[int]bool{},
		SessionID:   xid.New().String(),
		metrics:     m,
		Out:         os.Stdout,
	}, nil
}

func (c *Client) n() int { return len(c.proxies) }

func (c *Client) isFailed(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed[i]
}

func (c *Client) markFailed(i int) {
	c.mu.Lock()
	c.failed[i] = true
	n := len(c.failed)
	c.mu.Unlock()
	logrus.WithField("session", c.SessionID).Warnf("raidclient: server %d marked failed", i)
	c.metrics.SetFailedServers(n)
}

func (c *Client) markHealthy(i int) {
	c.mu.Lock()
	delete(c.failed, i)
	n := len(c.failed)
	c.mu.Unlock()
	c.metrics.SetFailedServers(n)
}

// ForceFail marks serverID failed without attempting to contact it,
// simulating the client-side effect of a detected disconnect for the
// interactive shell's "kill" command — no real process is touched.
func (c *Client) ForceFail(serverID int) error {
	if serverID < 0 || serverID >= c.n() {
		return fmt.Errorf("raidclient: server %d out of range", serverID)
	}
	c.markFailed(serverID)
	return nil
}

// FailedServers returns a snapshot of the current failed_servers set, for
// diagnostics and the interactive shell's "status" command.
func (c *Client) FailedServers() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.failed))
	for i := range c.failed {
		out = append(out, i)
	}
	return out
}

func (c *Client) emit(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

func (c *Client) emitDisconnectedGet(b int)  { c.emit("SERVER_DISCONNECTED GET %d", b) }
func (c *Client) emitDisconnectedPut(b int)  { c.emit("SERVER_DISCONNECTED PUT %d", b) }
func (c *Client) emitCorrupted(b int)        { c.emit("CORRUPTED_BLOCK %d", b) }

func pad(data []byte, size int) []byte {
	if len(data) >= size {
		out := make([]byte, size)
		copy(out, data[:size])
		return out
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

func xorInto(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] ^= src[i]
	}
}

func (c *Client) mapBlock(b int) (stripe.Location, error) {
	if b < 0 || b >= c.totalBlocks {
		return stripe.Location{}, &Failure{Kind: FailureOutOfRange, Block: b}
	}
	return stripe.Map(b, c.n())
}

// Get implements spec.md §4.3.1.
func (c *Client) Get(b int) ([]byte, error) {
	loc, err := c.mapBlock(b)
	if err != nil {
		return nil, err
	}
	d, s, p := loc.DataServer, loc.StripeIndex, loc.ParityServer

	if c.isFailed(d) {
		c.emitDisconnectedGet(b)
		return c.reconstruct(b, s, d, p)
	}

	data, corrupted, err := c.proxies[d].Get(s)
	if err != nil {
		c.markFailed(d)
		c.emitDisconnectedGet(b)
		return c.reconstruct(b, s, d, p)
	}
	if corrupted {
		c.emitCorrupted(b)
		return c.reconstruct(b, s, d, p)
	}
	return data, nil
}

// reconstruct performs the degraded-mode read described in spec.md
// §4.3.1 step 5: recover the missing data server's block by XORing
// parity with every other data server in the stripe.
func (c *Client) reconstruct(b, s, d, p int) ([]byte, error) {
	if c.isFailed(p) {
		return nil, &Failure{Kind: FailureTwoFaults, Block: b}
	}

	parity, corrupted, err := c.proxies[p].Get(s)
	if err != nil {
		c.markFailed(p)
		c.emitDisconnectedGet(b)
		return nil, &Failure{Kind: FailureTwoFaults, Block: b}
	}
	if corrupted {
		c.emitCorrupted(b)
		return nil, &Failure{Kind: FailureTwoFaults, Block: b}
	}

	recovered := make([]byte, len(parity))
	copy(recovered, parity)

	failures := 0
	for _, i := range stripe.DataServers(s, c.n()) {
		if i == d {
			continue
		}
		if c.isFailed(i) {
			failures++
			continue
		}
		blk, corrupted, err := c.proxies[i].Get(s)
		if err != nil {
			c.markFailed(i)
			failures++
			continue
		}
		if corrupted {
			failures++
			continue
		}
		xorInto(recovered, blk)
	}

	if failures > 0 {
		return nil, &Failure{Kind: FailureTwoFaults, Block: b}
	}

	c.metrics.ObserveDegraded("get")
	return recovered, nil
}

// Put implements spec.md §4.3.2.
func (c *Client) Put(b int, data []byte) error {
	loc, err := c.mapBlock(b)
	if err != nil {
		return err
	}
	d, s, p := loc.DataServer, loc.StripeIndex, loc.ParityServer
	padded := pad(data, c.blockSize)

	if c.isFailed(d) && c.isFailed(p) {
		return &Failure{Kind: FailureDataLoss, Block: b}
	}
	if c.isFailed(d) {
		return c.putDegradedB(b, s, d, p, padded)
	}
	if c.isFailed(p) {
		return c.putDegradedC(b, s, d, padded)
	}

	// Case A: both servers believed healthy — standard read-modify-write.
	oldParity, corrupted, err := c.proxies[p].Get(s)
	if err != nil {
		c.markFailed(p)
		c.emitDisconnectedPut(b)
		return c.putDegradedC(b, s, d, padded)
	}
	if corrupted {
		oldParity = make([]byte, c.blockSize)
	}

	oldData, corrupted, err := c.proxies[d].Get(s)
	if err != nil {
		c.markFailed(d)
		c.emitDisconnectedPut(b)
		return c.putDegradedB(b, s, d, p, padded)
	}
	if corrupted {
		oldData = make([]byte, c.blockSize)
	}

	if err := c.proxies[d].Put(s, padded); err != nil {
		c.markFailed(d)
		c.emitDisconnectedPut(b)
		return c.putDegradedB(b, s, d, p, padded)
	}

	newParity := make([]byte, c.blockSize)
	copy(newParity, oldParity)
	xorInto(newParity, oldData)
	xorInto(newParity, padded)

	if err := c.proxies[p].Put(s, newParity); err != nil {
		// Data is already durable on the data server; report success and
		// let repair() rebuild stale parity later (spec.md §4.3.2, §9).
		c.markFailed(p)
		c.emitDisconnectedPut(b)
	}
	return nil
}

// putDegradedB implements spec.md §4.3.2 Case B: d is known-failed, p is
// available. new_parity is computed from scratch against the surviving
// data-server peers.
func (c *Client) putDegradedB(b, s, d, p int, padded []byte) error {
	if c.isFailed(p) {
		return &Failure{Kind: FailureDataLoss, Block: b}
	}

	newParity := make([]byte, c.blockSize)
	copy(newParity, padded)

	for _, i := range stripe.DataServers(s, c.n()) {
		if i == d {
			continue
		}
		blk, corrupted, err := c.proxies[i].Get(s)
		if err != nil {
			c.markFailed(i)
			return &Failure{Kind: FailureTwoFaults, Block: b}
		}
		if corrupted {
			return &Failure{Kind: FailureTwoFaults, Block: b}
		}
		xorInto(newParity, blk)
	}

	if err := c.proxies[p].Put(s, newParity); err != nil {
		c.markFailed(p)
		c.emitDisconnectedPut(b)
		return &Failure{Kind: FailureDataLoss, Block: b}
	}

	c.metrics.ObserveDegraded("put")
	return nil
}

// putDegradedC implements spec.md §4.3.2 Case C: p is known-failed, d is
// available. Data is written directly; parity is knowingly stale until
// repair() runs.
func (c *Client) putDegradedC(b, s, d int, padded []byte) error {
	if c.isFailed(d) {
		return &Failure{Kind: FailureDataLoss, Block: b}
	}

	if err := c.proxies[d].Put(s, padded); err != nil {
		c.markFailed(d)
		c.emitDisconnectedPut(b)
		return &Failure{Kind: FailureDataLoss, Block: b}
	}

	c.metrics.ObserveDegraded("put")
	return nil
}

// VerifyStripe implements spec.md §4.3.3 for a single physical stripe
// index: XOR every data block, compare against the parity block,
// treating unreachable/corrupted servers as contributing zero.
func (c *Client) VerifyStripe(stripeIndex int) bool {
	expected := make([]byte, c.blockSize)
	for _, i := range stripe.DataServers(stripeIndex, c.n()) {
		blk, corrupted, err := c.proxies[i].Get(stripeIndex)
		if err != nil || corrupted {
			continue // treated as zero
		}
		xorInto(expected, blk)
	}

	parityServer := stripe.ParityServer(stripeIndex, c.n())
	actual, corrupted, err := c.proxies[parityServer].Get(stripeIndex)
	if err != nil || corrupted {
		actual = make([]byte, c.blockSize)
	}

	match := len(actual) == len(expected)
	if match {
		for i := range expected {
			if expected[i] != actual[i] {
				match = false
				break
			}
		}
	}
	return match
}

// VerifyRAID5Consistency implements spec.md §4.3.3's per-block form.
func (c *Client) VerifyRAID5Consistency(b int) (bool, error) {
	loc, err := c.mapBlock(b)
	if err != nil {
		return false, err
	}
	return c.VerifyStripe(loc.StripeIndex), nil
}

// VerifyAll is the whole-device variant named in spec.md §4.3.3: it
// iterates every unique physical stripe and returns the stripe indices
// that fail consistency.
func (c *Client) VerifyAll() []int {
	numStripes := stripe.NumStripes(c.totalBlocks, c.n())
	var bad []int
	for s := 0; s < numStripes; s++ {
		if !c.VerifyStripe(s) {
			bad = append(bad, s)
		}
	}
	return bad
}

// Repair implements spec.md §4.3.4: rebuild serverID's contents for
// every stripe from its surviving peers, then clear it from
// failed_servers. Running Repair twice is equivalent to running it once
// (P8): once parity is consistent, the second run re-derives and rewrites
// the same values, leaving every stored block unchanged.
func (c *Client) Repair(serverID int) error {
	if serverID < 0 || serverID >= c.n() {
		return fmt.Errorf("raidclient: server %d out of range", serverID)
	}

	numStripes := stripe.NumStripes(c.totalBlocks, c.n())
	for s := 0; s < numStripes; s++ {
		parityServer := stripe.ParityServer(s, c.n())

		var rebuilt []byte
		if serverID == parityServer {
			rebuilt = make([]byte, c.blockSize)
			for _, i := range stripe.DataServers(s, c.n()) {
				blk, corrupted, err := c.proxies[i].Get(s)
				if err != nil || corrupted {
					return fmt.Errorf("repair: stripe %d server %d unreachable or corrupted", s, i)
				}
				xorInto(rebuilt, blk)
			}
		} else {
			parityBlk, corrupted, err := c.proxies[parityServer].Get(s)
			if err != nil || corrupted {
				return fmt.Errorf("repair: stripe %d parity server %d unreachable or corrupted", s, parityServer)
			}
			rebuilt = make([]byte, len(parityBlk))
			copy(rebuilt, parityBlk)
			for _, i := range stripe.DataServers(s, c.n()) {
				if i == serverID {
					continue
				}
				blk, corrupted, err := c.proxies[i].Get(s)
				if err != nil || corrupted {
					return fmt.Errorf("repair: stripe %d server %d unreachable or corrupted", s, i)
				}
				xorInto(rebuilt, blk)
			}
		}

		if err := c.proxies[serverID].Put(s, rebuilt); err != nil {
			return fmt.Errorf("repair: failed writing stripe %d to server %d: %w", s, serverID, err)
		}
	}

	c.markHealthy(serverID)
	c.metrics.ObserveRepair()
	logrus.WithField("session", c.SessionID).Infof("raidclient: repair of server %d complete", serverID)
	return nil
}

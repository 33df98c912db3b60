// Package blockstore implements C4 of spec.md §4.4: the façade upper
// layers (the file-system layer, the shell) use instead of talking to
// internal/raidclient directly. Get/Put delegate; Acquire/Release are
// no-ops reserved for a future multi-client extension, per spec.md §4.4
// and §9 ("locking is a no-op").
package blockstore

import (
	"github.com/wothmag07/distributed-raid5-filesystem/internal/raidclient"
)

// Facade is the single entry point upper-layer code should hold onto.
type Facade struct {
	client      *raidclient.Client
	geometry    Geometry
	blockSize   int
	totalBlocks int
}

// Geometry carries the file-system-layer constants that are folded into
// the dump-file header (spec.md §6) even though the file-system layer
// itself is out of core scope — the header format is part of the block
// layer's serialization contract.
type Geometry struct {
	InodeSize               int
	MaxNumInodes            int
	MaxFilename             int
	InodeNumberDirentrySize int
}

// New wraps client behind the façade.
func New(client *raidclient.Client, blockSize, totalBlocks int, geometry Geometry) *Facade {
	return &Facade{
		client:      client,
		geometry:    geometry,
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
	}
}

// Get delegates to the RAID-5 client.
func (f *Facade) Get(blockNumber int) ([]byte, error) {
	return f.client.Get(blockNumber)
}

// Put delegates to the RAID-5 client.
func (f *Facade) Put(blockNumber int, data []byte) error {
	return f.client.Put(blockNumber, data)
}

// Acquire is a no-op: the system is single-client by design (spec.md §5).
// It is kept as a hook for a later multi-client extension; no caller in
// this module invokes it (internal/fsdemo uses only Get and Put).
func (f *Facade) Acquire() {}

// Release is the matching no-op for Acquire.
func (f *Facade) Release() {}

// Repair and Verify expose the client's repair/consistency-check
// operations through the façade so the shell doesn't need a second
// handle on the client.
func (f *Facade) Repair(serverID int) error { return f.client.Repair(serverID) }
func (f *Facade) VerifyAll() []int          { return f.client.VerifyAll() }
func (f *Facade) FailedServers() []int      { return f.client.FailedServers() }

// Kill forces serverID into the client's failed-server set, simulating
// a detected disconnect for the shell's "kill" command without
// touching any real process (see DESIGN.md).
func (f *Facade) Kill(serverID int) error { return f.client.ForceFail(serverID) }

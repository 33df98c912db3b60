// Package blockrpc defines the wire types shared by the block-server RPC
// service (internal/server) and the RAID-5 client (internal/raidclient).
// Go's net/rpc is statically typed, unlike the original's xmlrpc, so the
// "CORRUPTED_BLOCK <s>" sentinel string from spec.md §6 is carried as a
// dedicated reply field instead of being smuggled inside the byte payload
// (see DESIGN.md for the reasoning).
package blockrpc

import "fmt"

// ServiceName is the net/rpc service name the block server registers
// itself under.
const ServiceName = "BlockService"

// GetArgs/GetReply implement BlockService.Get.
type GetArgs struct {
	BlockIndex int
}

type GetReply struct {
	Data      []byte
	Corrupted bool
}

// CorruptedSentinel renders the reply the way spec.md §6 describes it for
// logging/display purposes: "CORRUPTED_BLOCK <s>".
func (a GetArgs) CorruptedSentinel() string {
	return fmt.Sprintf("CORRUPTED_BLOCK %d", a.BlockIndex)
}

// PutArgs/PutReply implement BlockService.Put.
type PutArgs struct {
	BlockIndex int
	Data       []byte
}

type PutReply struct {
	Status int // 0 success, -1 logical error
}

// RSMArgs/RSMReply implement BlockService.RSM, retained for protocol
// compatibility only (spec.md §4.1, §9) — the RAID-5 client never calls it.
type RSMArgs struct {
	BlockIndex int
}

type RSMReply struct {
	Data []byte
}

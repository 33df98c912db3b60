// Package server implements the block server (C1 in spec.md §4.1): an
// array of fixed-size blocks with a per-block MD5 checksum, served over
// net/rpc. It owns its block array and checksum array directly; net/rpc
// may dispatch requests concurrently, so a mutex serializes access the
// same way the original's single-threaded SimpleXMLRPCServer did.
package server

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockrpc"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/metrics"
)

// BlockServer stores the raw block array and checksums, per spec.md §3
// ("Block-server state"). corruptBlock, when >= 0, makes Get always
// return the corruption sentinel for that index, simulating a bad disk
// sector.
type BlockServer struct {
	mu sync.Mutex

	blockSize int
	blocks    [][]byte
	checksums [][md5.Size]byte

	counter      uint64
	delayAt      int
	corruptBlock int // -1 means "no injected corruption"

	metrics *metrics.ServerMetrics
}

// New creates a BlockServer with totalBlocks zero-filled blocks of
// blockSize bytes each. delayAt <= 0 disables the artificial Sleep delay;
// corruptBlock < 0 disables corruption injection.
func New(totalBlocks, blockSize, delayAt, corruptBlock int, m *metrics.ServerMetrics) *BlockServer {
	s := &BlockServer{
		blockSize:    blockSize,
		blocks:       make([][]byte, totalBlocks),
		checksums:    make([][md5.Size]byte, totalBlocks),
		delayAt:      delayAt,
		corruptBlock: corruptBlock,
		metrics:      m,
	}
	for i := range s.blocks {
		s.blocks[i] = make([]byte, blockSize)
		s.checksums[i] = md5.Sum(s.blocks[i])
	}
	return s
}

func (s *BlockServer) computeChecksum(data []byte) [md5.Size]byte {
	return md5.Sum(data)
}

// sleep implements the legacy "every delayAt-th request sleeps" test hook
// from spec.md §4.1. Must be called with s.mu held.
func (s *BlockServer) sleep() {
	s.counter++
	if s.delayAt > 0 && s.counter%uint64(s.delayAt) == 0 {
		time.Sleep(10 * time.Second)
	}
}

// Get returns the block at physical index idx, or (nil, true) if the
// block is corrupted (injected or checksum mismatch).
func (s *BlockServer) Get(idx int) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx >= len(s.blocks) {
		return nil, false, fmt.Errorf("server: block %d out of range [0, %d)", idx, len(s.blocks))
	}

	if s.corruptBlock >= 0 && idx == s.corruptBlock {
		logrus.Warnf("server: simulating corruption for block %d", idx)
		s.metrics.ObserveCorruption()
		s.sleep()
		return nil, true, nil
	}

	data := s.blocks[idx]
	if s.computeChecksum(data) != s.checksums[idx] {
		logrus.Errorf("server: checksum mismatch for block %d", idx)
		s.metrics.ObserveCorruption()
		s.sleep()
		return nil, true, nil
	}

	out := make([]byte, len(data))
	copy(out, data)
	s.metrics.ObserveRequest("get")
	s.sleep()
	return out, false, nil
}

// Put stores data (which must be exactly blockSize bytes) at physical
// index idx and recomputes its checksum.
func (s *BlockServer) Put(idx int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx >= len(s.blocks) {
		return fmt.Errorf("server: block %d out of range [0, %d)", idx, len(s.blocks))
	}
	if len(data) != s.blockSize {
		return fmt.Errorf("server: put data length %d != block size %d", len(data), s.blockSize)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	s.blocks[idx] = cp
	s.checksums[idx] = s.computeChecksum(cp)
	s.metrics.ObserveRequest("put")
	s.sleep()
	return nil
}

// RSM implements the legacy read-and-set-memory primitive (spec.md §4.1):
// returns the current block, then overwrites it with the all-0x01
// pattern. Retained for protocol compatibility only.
func (s *BlockServer) RSM(idx int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx >= len(s.blocks) {
		return nil, fmt.Errorf("server: block %d out of range [0, %d)", idx, len(s.blocks))
	}

	out := make([]byte, len(s.blocks[idx]))
	copy(out, s.blocks[idx])

	locked := make([]byte, s.blockSize)
	for i := range locked {
		locked[i] = 0x01
	}
	s.blocks[idx] = locked
	s.checksums[idx] = s.computeChecksum(locked)

	s.metrics.ObserveRequest("rsm")
	s.sleep()
	return out, nil
}

// BlockService adapts BlockServer to the net/rpc calling convention used
// by internal/blockrpc. One BlockService is registered per process, under
// blockrpc.ServiceName.
type BlockService struct {
	Store *BlockServer
}

func (svc *BlockService) Get(args blockrpc.GetArgs, reply *blockrpc.GetReply) error {
	data, corrupted, err := svc.Store.Get(args.BlockIndex)
	if err != nil {
		return err
	}
	reply.Data = data
	reply.Corrupted = corrupted
	return nil
}

// SingleGet is an alias for Get, retained for protocol compatibility with
// spec.md §6.
func (svc *BlockService) SingleGet(args blockrpc.GetArgs, reply *blockrpc.GetReply) error {
	return svc.Get(args, reply)
}

func (svc *BlockService) Put(args blockrpc.PutArgs, reply *blockrpc.PutReply) error {
	if err := svc.Store.Put(args.BlockIndex, args.Data); err != nil {
		reply.Status = -1
		return err
	}
	reply.Status = 0
	return nil
}

// SinglePut is an alias for Put, retained for protocol compatibility with
// spec.md §6.
func (svc *BlockService) SinglePut(args blockrpc.PutArgs, reply *blockrpc.PutReply) error {
	return svc.Put(args, reply)
}

func (svc *BlockService) RSM(args blockrpc.RSMArgs, reply *blockrpc.RSMReply) error {
	data, err := svc.Store.RSM(args.BlockIndex)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

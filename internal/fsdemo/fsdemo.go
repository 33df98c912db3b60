// Package fsdemo recovers a compact file-system layer on top of
// internal/blockstore (C5 in SPEC_FULL.md §4.8), grounded on
// original_source/fileoperations.py, inode.py and filename.py. It exists
// so the façade has a real consumer beyond tests: a superblock, a flat
// inode table, a single-level root directory, and create/write/read/
// unlink. Multi-level directories and symlinks are dropped, matching the
// Non-goals spec.md inherits from its own distillation.
package fsdemo

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockstore"
)

// InodeType mirrors fsconfig.INODE_TYPE_* from original_source.
type InodeType int32

const (
	InodeTypeInvalid InodeType = 0
	InodeTypeFile    InodeType = 1
	InodeTypeDir     InodeType = 2
)

// MaxInodeBlockNumbers bounds a file to direct blocks only — no indirect
// block support, the one structural simplification from the original's
// inode layout (see DESIGN.md).
const MaxInodeBlockNumbers = 8

// RootInode is always the root directory's inode number.
const RootInode = 0

// inode is the fixed-size on-disk record packed into the inode table.
type inode struct {
	Type     InodeType
	Size     int64
	RefCount int32
	Blocks   [MaxInodeBlockNumbers]int32
}

const inodeEncodedSize = 4 + 8 + 4 + 4*MaxInodeBlockNumbers

func (n *inode) encode() []byte {
	buf := make([]byte, inodeEncodedSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(n.Type))
	binary.BigEndian.PutUint64(buf[4:12], uint64(n.Size))
	binary.BigEndian.PutUint32(buf[12:16], uint32(n.RefCount))
	for i, b := range n.Blocks {
		off := 16 + i*4
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(b))
	}
	return buf
}

func decodeInode(buf []byte) inode {
	var n inode
	n.Type = InodeType(binary.BigEndian.Uint32(buf[0:4]))
	n.Size = int64(binary.BigEndian.Uint64(buf[4:12]))
	n.RefCount = int32(binary.BigEndian.Uint32(buf[12:16]))
	for i := range n.Blocks {
		off := 16 + i*4
		n.Blocks[i] = int32(binary.BigEndian.Uint32(buf[off : off+4]))
	}
	return n
}

// dirEntry is a fixed-size (name, inode number) binding, matching the
// original's flat per-directory entry table.
type dirEntry struct {
	Name  string
	Inode int32
	Used  bool
}

// Filesystem lays out a superblock, an inode table, a free-block bitmap
// and a data region over a blockstore.Facade, per SPEC_FULL.md §4.8.
type Filesystem struct {
	store *blockstore.Facade

	blockSize   int
	totalBlocks int
	maxInodes   int
	maxFilename int

	superblockBlock  int
	inodeTableStart  int
	inodeTableBlocks int
	bitmapBlock      int
	dataStart        int
	dataBlocks       int

	inodesPerBlock  int
	dirEntrySize    int
	entriesPerBlock int
}

// New lays out the geometry described above without touching storage;
// call Format to initialize a fresh filesystem, or skip it to attach to
// one already formatted with the same parameters.
func New(store *blockstore.Facade, blockSize, totalBlocks, maxInodes, maxFilename int) (*Filesystem, error) {
	if blockSize <= 0 || totalBlocks <= 0 || maxInodes <= 0 || maxFilename <= 0 {
		return nil, fmt.Errorf("fsdemo: geometry parameters must be positive")
	}

	inodesPerBlock := blockSize / inodeEncodedSize
	if inodesPerBlock == 0 {
		return nil, fmt.Errorf("fsdemo: block size %d too small for an inode record of %d bytes", blockSize, inodeEncodedSize)
	}
	inodeTableBlocks := (maxInodes + inodesPerBlock - 1) / inodesPerBlock

	dirEntrySize := maxFilename + 4 + 1 // name + inode number + used flag
	entriesPerBlock := blockSize / dirEntrySize
	if entriesPerBlock == 0 {
		return nil, fmt.Errorf("fsdemo: block size %d too small for a directory entry of %d bytes", blockSize, dirEntrySize)
	}

	superblockBlock := 0
	inodeTableStart := 1
	bitmapBlock := inodeTableStart + inodeTableBlocks
	dataStart := bitmapBlock + 1
	dataBlocks := totalBlocks - dataStart
	if dataBlocks <= 0 {
		return nil, fmt.Errorf("fsdemo: totalBlocks %d too small to hold superblock+inode table+bitmap", totalBlocks)
	}
	if dataBlocks > blockSize*8 {
		return nil, fmt.Errorf("fsdemo: data region of %d blocks needs more than one bitmap block", dataBlocks)
	}

	return &Filesystem{
		store:            store,
		blockSize:        blockSize,
		totalBlocks:      totalBlocks,
		maxInodes:        maxInodes,
		maxFilename:      maxFilename,
		superblockBlock:  superblockBlock,
		inodeTableStart:  inodeTableStart,
		inodeTableBlocks: inodeTableBlocks,
		bitmapBlock:      bitmapBlock,
		dataStart:        dataStart,
		dataBlocks:       dataBlocks,
		inodesPerBlock:   inodesPerBlock,
		dirEntrySize:     dirEntrySize,
		entriesPerBlock:  entriesPerBlock,
	}, nil
}

// MaxFileSize is the largest a file can grow to under the direct-block-
// only inode layout.
func (fs *Filesystem) MaxFileSize() int64 {
	return int64(MaxInodeBlockNumbers) * int64(fs.blockSize)
}

// Format writes a zeroed superblock, inode table and bitmap, then
// creates the root directory at RootInode with "." and ".." entries
// bound to itself.
func (fs *Filesystem) Format() error {
	header := fmt.Sprintf("FS_NI_%d_MF_%d_DS_%d", fs.maxInodes, fs.maxFilename, fs.dataStart)
	sb := make([]byte, fs.blockSize)
	copy(sb, header)
	if err := fs.store.Put(fs.superblockBlock, sb); err != nil {
		return fmt.Errorf("fsdemo: format: superblock: %w", err)
	}

	empty := inode{Type: InodeTypeInvalid}
	for i := 0; i < fs.maxInodes; i++ {
		if err := fs.writeInode(int32(i), empty); err != nil {
			return fmt.Errorf("fsdemo: format: inode %d: %w", i, err)
		}
	}

	if err := fs.store.Put(fs.bitmapBlock, make([]byte, fs.blockSize)); err != nil {
		return fmt.Errorf("fsdemo: format: bitmap: %w", err)
	}

	rootDataBlock, err := fs.allocateBlock()
	if err != nil {
		return fmt.Errorf("fsdemo: format: root data block: %w", err)
	}
	root := inode{Type: InodeTypeDir, Size: 0, RefCount: 1}
	root.Blocks[0] = int32(rootDataBlock)
	if err := fs.writeInode(RootInode, root); err != nil {
		return fmt.Errorf("fsdemo: format: root inode: %w", err)
	}
	if err := fs.writeDirBlock(rootDataBlock, nil); err != nil {
		return fmt.Errorf("fsdemo: format: root dir block: %w", err)
	}
	if err := fs.insertDirEntry(RootInode, ".", RootInode); err != nil {
		return fmt.Errorf("fsdemo: format: root '.': %w", err)
	}
	if err := fs.insertDirEntry(RootInode, "..", RootInode); err != nil {
		return fmt.Errorf("fsdemo: format: root '..': %w", err)
	}

	logrus.Infof("fsdemo: formatted %d inodes, %d data blocks", fs.maxInodes, fs.dataBlocks)
	return nil
}

func (fs *Filesystem) readInode(num int32) (inode, error) {
	if num < 0 || int(num) >= fs.maxInodes {
		return inode{}, fmt.Errorf("fsdemo: inode %d out of range", num)
	}
	blockIdx := fs.inodeTableStart + int(num)/fs.inodesPerBlock
	slot := int(num) % fs.inodesPerBlock

	block, err := fs.store.Get(blockIdx)
	if err != nil {
		return inode{}, fmt.Errorf("fsdemo: reading inode %d: %w", num, err)
	}
	off := slot * inodeEncodedSize
	return decodeInode(block[off : off+inodeEncodedSize]), nil
}

func (fs *Filesystem) writeInode(num int32, n inode) error {
	if num < 0 || int(num) >= fs.maxInodes {
		return fmt.Errorf("fsdemo: inode %d out of range", num)
	}
	blockIdx := fs.inodeTableStart + int(num)/fs.inodesPerBlock
	slot := int(num) % fs.inodesPerBlock

	block, err := fs.store.Get(blockIdx)
	if err != nil {
		return fmt.Errorf("fsdemo: reading inode block for %d: %w", num, err)
	}
	off := slot * inodeEncodedSize
	copy(block[off:off+inodeEncodedSize], n.encode())
	return fs.store.Put(blockIdx, block)
}

// findAvailableInode returns the first inode number of type Invalid.
func (fs *Filesystem) findAvailableInode() (int32, error) {
	for i := 0; i < fs.maxInodes; i++ {
		n, err := fs.readInode(int32(i))
		if err != nil {
			return -1, err
		}
		if n.Type == InodeTypeInvalid {
			return int32(i), nil
		}
	}
	return -1, nil
}

func (fs *Filesystem) allocateBlock() (int, error) {
	bitmap, err := fs.store.Get(fs.bitmapBlock)
	if err != nil {
		return -1, fmt.Errorf("fsdemo: reading bitmap: %w", err)
	}
	for i := 0; i < fs.dataBlocks; i++ {
		if bitmap[i/8]&(1<<uint(i%8)) == 0 {
			bitmap[i/8] |= 1 << uint(i%8)
			if err := fs.store.Put(fs.bitmapBlock, bitmap); err != nil {
				return -1, fmt.Errorf("fsdemo: writing bitmap: %w", err)
			}
			return fs.dataStart + i, nil
		}
	}
	return -1, fmt.Errorf("fsdemo: no free data blocks")
}

func (fs *Filesystem) freeBlock(blockIdx int) error {
	bitmap, err := fs.store.Get(fs.bitmapBlock)
	if err != nil {
		return fmt.Errorf("fsdemo: reading bitmap: %w", err)
	}
	i := blockIdx - fs.dataStart
	if i < 0 || i >= fs.dataBlocks {
		return fmt.Errorf("fsdemo: block %d outside data region", blockIdx)
	}
	bitmap[i/8] &^= 1 << uint(i%8)
	return fs.store.Put(fs.bitmapBlock, bitmap)
}

func (fs *Filesystem) readDirBlock(blockIdx int) ([]dirEntry, error) {
	block, err := fs.store.Get(blockIdx)
	if err != nil {
		return nil, err
	}
	entries := make([]dirEntry, fs.entriesPerBlock)
	for i := range entries {
		off := i * fs.dirEntrySize
		rec := block[off : off+fs.dirEntrySize]
		entries[i].Used = rec[0] == 1
		name := bytes.TrimRight(rec[1:1+fs.maxFilename], "\x00")
		entries[i].Name = string(name)
		entries[i].Inode = int32(binary.BigEndian.Uint32(rec[1+fs.maxFilename:]))
	}
	return entries, nil
}

func (fs *Filesystem) writeDirBlock(blockIdx int, entries []dirEntry) error {
	block := make([]byte, fs.blockSize)
	for i := 0; i < fs.entriesPerBlock; i++ {
		off := i * fs.dirEntrySize
		if i >= len(entries) || !entries[i].Used {
			continue
		}
		rec := block[off : off+fs.dirEntrySize]
		rec[0] = 1
		copy(rec[1:1+fs.maxFilename], entries[i].Name)
		binary.BigEndian.PutUint32(rec[1+fs.maxFilename:], uint32(entries[i].Inode))
	}
	return fs.store.Put(blockIdx, block)
}

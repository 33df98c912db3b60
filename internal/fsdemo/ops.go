package fsdemo

import "fmt"

// Error code strings mirror original_source/fileoperations.py's
// ERROR_* constants so the observable contract named in SPEC_FULL.md
// §7 survives the port: callers that logged or matched on these strings
// against the original still see the same vocabulary here.
const (
	ErrCreateInvalidType        = "ERROR_CREATE_INVALID_TYPE"
	ErrCreateInodeNotAvailable  = "ERROR_CREATE_INODE_NOT_AVAILABLE"
	ErrCreateInvalidDir         = "ERROR_CREATE_INVALID_DIR"
	ErrCreateDataBlockNotAvail  = "ERROR_CREATE_DATA_BLOCK_NOT_AVAILABLE"
	ErrCreateAlreadyExists      = "ERROR_CREATE_ALREADY_EXISTS"
	ErrWriteNotFile             = "ERROR_WRITE_NOT_FILE"
	ErrWriteOffsetLargerSize    = "ERROR_WRITE_OFFSET_LARGER_THAN_SIZE"
	ErrWriteExceedsFileSize     = "ERROR_WRITE_EXCEEDS_FILE_SIZE"
	ErrReadNotFile              = "ERROR_READ_NOT_FILE"
	ErrReadOffsetLargerSize     = "ERROR_READ_OFFSET_LARGER_THAN_SIZE"
	ErrUnlinkNotFound           = "ERROR_UNLINK_NOT_FOUND"
	ErrUnlinkNotFile            = "ERROR_UNLINK_NOT_FILE"
	Success                     = "SUCCESS"
)

// lookup scans dirInode's (single) data block for name, returning its
// inode number or -1 if absent.
func (fs *Filesystem) lookup(dirInode int32, name string) (int32, error) {
	dir, err := fs.readInode(dirInode)
	if err != nil {
		return -1, err
	}
	entries, err := fs.readDirBlock(int(dir.Blocks[0]))
	if err != nil {
		return -1, err
	}
	for _, e := range entries {
		if e.Used && e.Name == name {
			return e.Inode, nil
		}
	}
	return -1, nil
}

func (fs *Filesystem) insertDirEntry(dirInode int32, name string, target int32) error {
	dir, err := fs.readInode(dirInode)
	if err != nil {
		return err
	}
	blockIdx := int(dir.Blocks[0])
	entries, err := fs.readDirBlock(blockIdx)
	if err != nil {
		return err
	}
	for i := range entries {
		if !entries[i].Used {
			entries[i] = dirEntry{Name: name, Inode: target, Used: true}
			return fs.writeDirBlock(blockIdx, entries)
		}
	}
	return fmt.Errorf("fsdemo: directory %d has no free entry slots", dirInode)
}

func (fs *Filesystem) removeDirEntry(dirInode int32, name string) error {
	dir, err := fs.readInode(dirInode)
	if err != nil {
		return err
	}
	blockIdx := int(dir.Blocks[0])
	entries, err := fs.readDirBlock(blockIdx)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Used && entries[i].Name == name {
			entries[i] = dirEntry{}
			return fs.writeDirBlock(blockIdx, entries)
		}
	}
	return nil
}

func (fs *Filesystem) hasFreeDirSlot(dirInode int32) (bool, error) {
	dir, err := fs.readInode(dirInode)
	if err != nil {
		return false, err
	}
	entries, err := fs.readDirBlock(int(dir.Blocks[0]))
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.Used {
			return true, nil
		}
	}
	return false, nil
}

// Create binds name to a new inode of the given type inside dirInode,
// per fileoperations.py's Create. Directories are given one allocated
// data block up front; files allocate blocks lazily on Write.
func (fs *Filesystem) Create(dirInode int32, name string, typ InodeType) (int32, string, error) {
	if typ != InodeTypeFile && typ != InodeTypeDir {
		return -1, ErrCreateInvalidType, nil
	}

	newInodeNum, err := fs.findAvailableInode()
	if err != nil {
		return -1, "", err
	}
	if newInodeNum == -1 {
		return -1, ErrCreateInodeNotAvailable, nil
	}

	dir, err := fs.readInode(dirInode)
	if err != nil {
		return -1, "", err
	}
	if dir.Type != InodeTypeDir {
		return -1, ErrCreateInvalidDir, nil
	}

	free, err := fs.hasFreeDirSlot(dirInode)
	if err != nil {
		return -1, "", err
	}
	if !free {
		return -1, ErrCreateDataBlockNotAvail, nil
	}

	existing, err := fs.lookup(dirInode, name)
	if err != nil {
		return -1, "", err
	}
	if existing != -1 {
		return -1, ErrCreateAlreadyExists, nil
	}

	newInode := inode{Type: typ, Size: 0, RefCount: 1}
	if typ == InodeTypeDir {
		blockIdx, err := fs.allocateBlock()
		if err != nil {
			return -1, "", err
		}
		newInode.Blocks[0] = int32(blockIdx)
		if err := fs.writeDirBlock(blockIdx, nil); err != nil {
			return -1, "", err
		}
	}
	if err := fs.writeInode(newInodeNum, newInode); err != nil {
		return -1, "", err
	}

	if err := fs.insertDirEntry(dirInode, name, newInodeNum); err != nil {
		return -1, "", err
	}
	dir.RefCount++
	if err := fs.writeInode(dirInode, dir); err != nil {
		return -1, "", err
	}

	if typ == InodeTypeDir {
		if err := fs.insertDirEntry(newInodeNum, ".", newInodeNum); err != nil {
			return -1, "", err
		}
		if err := fs.insertDirEntry(newInodeNum, "..", dirInode); err != nil {
			return -1, "", err
		}
	}

	return newInodeNum, Success, nil
}

// Write appends/overwrites data at offset, spanning as many direct
// blocks as needed, allocating new ones lazily. offset must not exceed
// the file's current size (matching fileoperations.py's Write, which
// does not support holes).
func (fs *Filesystem) Write(fileInode int32, offset int64, data []byte) (int, string, error) {
	n, err := fs.readInode(fileInode)
	if err != nil {
		return -1, "", err
	}
	if n.Type != InodeTypeFile {
		return -1, ErrWriteNotFile, nil
	}
	if offset > n.Size {
		return -1, ErrWriteOffsetLargerSize, nil
	}
	if offset+int64(len(data)) > fs.MaxFileSize() {
		return -1, ErrWriteExceedsFileSize, nil
	}

	currentOffset := offset
	written := 0
	for written < len(data) {
		blockIndex := int(currentOffset) / fs.blockSize
		nextBoundary := int64(blockIndex+1) * int64(fs.blockSize)
		writeStart := int(currentOffset) % fs.blockSize

		var writeEnd int
		if offset+int64(len(data)) >= nextBoundary {
			writeEnd = fs.blockSize
		} else {
			writeEnd = int((offset + int64(len(data))) % int64(fs.blockSize))
		}

		physical := n.Blocks[blockIndex]
		if physical == 0 {
			allocated, err := fs.allocateBlock()
			if err != nil {
				return -1, "", err
			}
			physical = int32(allocated)
			n.Blocks[blockIndex] = physical
		}

		block, err := fs.store.Get(int(physical))
		if err != nil {
			return -1, "", err
		}
		copy(block[writeStart:writeEnd], data[written:written+(writeEnd-writeStart)])
		if err := fs.store.Put(int(physical), block); err != nil {
			return -1, "", err
		}

		currentOffset += int64(writeEnd - writeStart)
		written += writeEnd - writeStart
	}

	n.Size = offset + int64(written)
	if err := fs.writeInode(fileInode, n); err != nil {
		return -1, "", err
	}
	return written, Success, nil
}

// Read returns up to count bytes starting at offset, truncated at EOF.
func (fs *Filesystem) Read(fileInode int32, offset int64, count int) ([]byte, string, error) {
	n, err := fs.readInode(fileInode)
	if err != nil {
		return nil, "", err
	}
	if n.Type != InodeTypeFile {
		return nil, ErrReadNotFile, nil
	}
	if offset > n.Size {
		return nil, ErrReadOffsetLargerSize, nil
	}

	toRead := int64(count)
	if offset+toRead > n.Size {
		toRead = n.Size - offset
	}
	out := make([]byte, toRead)

	currentOffset := offset
	read := int64(0)
	for read < toRead {
		blockIndex := int(currentOffset) / fs.blockSize
		nextBoundary := int64(blockIndex+1) * int64(fs.blockSize)
		readStart := int(currentOffset) % fs.blockSize

		var readEnd int
		if offset+toRead >= nextBoundary {
			readEnd = fs.blockSize
		} else {
			readEnd = int((offset + toRead) % int64(fs.blockSize))
		}

		physical := n.Blocks[blockIndex]
		block, err := fs.store.Get(int(physical))
		if err != nil {
			return nil, "", err
		}
		copy(out[read:read+int64(readEnd-readStart)], block[readStart:readEnd])

		read += int64(readEnd - readStart)
		currentOffset += int64(readEnd - readStart)
	}

	return out, Success, nil
}

// Unlink removes name from dirInode. When the target's refcount reaches
// zero its data blocks are freed and its inode invalidated.
func (fs *Filesystem) Unlink(dirInode int32, name string) (string, error) {
	target, err := fs.lookup(dirInode, name)
	if err != nil {
		return "", err
	}
	if target == -1 {
		return ErrUnlinkNotFound, nil
	}

	n, err := fs.readInode(target)
	if err != nil {
		return "", err
	}
	if n.Type != InodeTypeFile {
		return ErrUnlinkNotFile, nil
	}

	n.RefCount--
	if n.RefCount <= 0 {
		for i, b := range n.Blocks {
			if b != 0 {
				if err := fs.freeBlock(int(b)); err != nil {
					return "", err
				}
				n.Blocks[i] = 0
			}
		}
		n.Type = InodeTypeInvalid
		n.Size = 0
	}
	if err := fs.writeInode(target, n); err != nil {
		return "", err
	}

	return Success, fs.removeDirEntry(dirInode, name)
}

package raidclient

import (
	"bytes"
	"crypto/md5"
	"fmt"
)

// fakeServer is an in-process ServerProxy used to exercise Client without
// real sockets. It is adapted from the teacher's Disk type (an in-memory
// per-server block array used by its RAID0/RAID1 controllers): here it
// gains per-block checksums and independent "disconnected"/"corrupt"
// fault injection, matching the real server's failure model in spec.md
// §3/§4.1 instead of a mirrored/striped local disk.
type fakeServer struct {
	blockSize      int
	blocks         map[int][]byte
	checksums      map[int][md5.Size]byte
	disconnected   bool
	disconnectPut  bool // like disconnected, but only affects Put (Get still works)
	corruptAt      map[int]bool
}

func newFakeServer(blockSize int) *fakeServer {
	return &fakeServer{
		blockSize: blockSize,
		blocks:    map[int][]byte{},
		checksums: map[int][md5.Size]byte{},
		corruptAt: map[int]bool{},
	}
}

func (f *fakeServer) getRaw(idx int) []byte {
	if b, ok := f.blocks[idx]; ok {
		return b
	}
	return make([]byte, f.blockSize)
}

func (f *fakeServer) Get(idx int) ([]byte, bool, error) {
	if f.disconnected {
		return nil, false, fmt.Errorf("fakeServer: disconnected")
	}
	if f.corruptAt[idx] {
		return nil, true, nil
	}
	data := f.getRaw(idx)
	if sum, ok := f.checksums[idx]; ok {
		if md5.Sum(data) != sum {
			return nil, true, nil
		}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, false, nil
}

func (f *fakeServer) Put(idx int, data []byte) error {
	if f.disconnected || f.disconnectPut {
		return fmt.Errorf("fakeServer: disconnected")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.blocks[idx] = cp
	f.checksums[idx] = md5.Sum(cp)
	delete(f.corruptAt, idx)
	return nil
}

func (f *fakeServer) setDisconnected(v bool)    { f.disconnected = v }
func (f *fakeServer) setDisconnectPut(v bool)   { f.disconnectPut = v }
func (f *fakeServer) corrupt(idx int)           { f.corruptAt[idx] = true }

func newFakeCluster(n, blockSize int) ([]*fakeServer, []ServerProxy) {
	servers := make([]*fakeServer, n)
	proxies := make([]ServerProxy, n)
	for i := range servers {
		servers[i] = newFakeServer(blockSize)
		proxies[i] = servers[i]
	}
	return servers, proxies
}

func equalBlocks(a, b []byte) bool {
	return bytes.Equal(a, b)
}

package blockstore

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
)

// dumpEnvelope is the on-disk payload written after the header line.
// encoding/gob is the stdlib round-trip serializer used here because
// none of the pack's serialization libraries (protobuf, pulled in
// transitively through prometheus/client_golang; yaml.v3, pulled in
// transitively through testify) are a fit for an opaque same-process
// block array: both exist in this module's dependency graph only as
// indirect deps of unrelated packages, not as something any example
// repo actually calls for disk persistence, so there is nothing
// corpus-grounded to imitate here.
type dumpEnvelope struct {
	Blocks map[int][]byte
}

// header reproduces the original block.py dump format so a dump taken
// against one geometry cannot silently be loaded against another:
// "BS_<bs>_NB_<nb>_IS_<is>_MI_<mi>_MF_<mf>_IDS_<ids>" (spec.md §6).
func (f *Facade) header() string {
	return fmt.Sprintf("BS_%d_NB_%d_IS_%d_MI_%d_MF_%d_IDS_%d",
		f.blockSize, f.totalBlocks,
		f.geometry.InodeSize, f.geometry.MaxNumInodes,
		f.geometry.MaxFilename, f.geometry.InodeNumberDirentrySize)
}

// DumpToDisk serializes every live block to path, prefixed by the
// geometry header. It is the offline counterpart to Repair: a snapshot
// an operator can archive or diff, not used by any online path.
func (f *Facade) DumpToDisk(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("blockstore: dump: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := fmt.Fprintln(w, f.header()); err != nil {
		return fmt.Errorf("blockstore: dump: writing header: %w", err)
	}

	env := dumpEnvelope{Blocks: map[int][]byte{}}
	for b := 0; b < f.totalBlocks; b++ {
		data, err := f.Get(b)
		if err != nil {
			return fmt.Errorf("blockstore: dump: reading block %d: %w", b, err)
		}
		env.Blocks[b] = data
	}

	if err := gob.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("blockstore: dump: encoding blocks: %w", err)
	}
	return w.Flush()
}

// LoadFromDump restores every block from path, rejecting the dump
// outright if its header does not match this façade's geometry
// (spec.md §6: a dump is only meaningful against the cluster shape it
// was taken from).
func (f *Facade) LoadFromDump(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("blockstore: load: %w", err)
	}

	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		return fmt.Errorf("blockstore: load: missing header")
	}
	header := string(raw[:nl])
	if header != f.header() {
		return fmt.Errorf("blockstore: load: header mismatch: dump has %q, cluster is %q", header, f.header())
	}

	var env dumpEnvelope
	dec := gob.NewDecoder(bytes.NewReader(raw[nl+1:]))
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("blockstore: load: decoding blocks: %w", err)
	}

	for b := 0; b < f.totalBlocks; b++ {
		data, ok := env.Blocks[b]
		if !ok {
			continue
		}
		if err := f.Put(b, data); err != nil {
			return fmt.Errorf("blockstore: load: writing block %d: %w", b, err)
		}
	}
	return nil
}

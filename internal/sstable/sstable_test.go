package sstable

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestWriteOrderingAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstable_0.txt")

	kvs := []KV{{"a", "1"}, {"b", "2"}, {"c", "3"}}
	idx, filter, err := Write(path, kvs, 128, 0.01)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(idx.Entries) == 0 || idx.Entries[0].Key != "a" || idx.Entries[0].Offset != 0 {
		t.Fatalf("expected first index entry to be key a at offset 0, got %+v", idx.Entries)
	}

	table := &Table{Path: path, Index: idx, Bloom: filter}
	handles, err := NewHandleCache(4)
	if err != nil {
		t.Fatalf("NewHandleCache: %v", err)
	}
	defer handles.CloseAll()

	for _, kv := range kvs {
		got, ok, err := table.Get(kv.Key, handles)
		if err != nil {
			t.Fatalf("Get(%q): %v", kv.Key, err)
		}
		if !ok || got != kv.Value {
			t.Fatalf("Get(%q) = %q, %v; want %q, true", kv.Key, got, ok, kv.Value)
		}
	}

	if _, ok, err := table.Get("missing", handles); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v; want absent", ok, err)
	}
}

func TestBloomNeverFalseNegative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstable_0.txt")

	var kvs []KV
	for i := 0; i < 50; i++ {
		kvs = append(kvs, KV{Key: fmt.Sprintf("key%03d", i), Value: fmt.Sprintf("value-of-%d", i)})
	}
	idx, filter, err := Write(path, kvs, 128, 0.01)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	table := &Table{Path: path, Index: idx, Bloom: filter}
	handles, _ := NewHandleCache(4)
	defer handles.CloseAll()

	for _, kv := range kvs {
		got, ok, err := table.Get(kv.Key, handles)
		if err != nil || !ok || got != kv.Value {
			t.Fatalf("Get(%q) = %q, %v, %v; want %q, true, nil", kv.Key, got, ok, err, kv.Value)
		}
	}
}

func TestSparseIndexSeeksNotScansFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstable_0.txt")

	var kvs []KV
	for i := 0; i < 200; i++ {
		kvs = append(kvs, KV{Key: fmt.Sprintf("key%03d", i), Value: fmt.Sprintf("value-%03d-padding", i)})
	}
	idx, filter, err := Write(path, kvs, 128, 0.01)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(idx.Entries) < 2 {
		t.Fatalf("expected several sparse-index entries for 200 records, got %d", len(idx.Entries))
	}

	target := "key137"
	start, _, _, found := idx.bounds(target)
	if !found {
		t.Fatalf("bounds(%q) reported not found", target)
	}
	if start == 0 {
		t.Fatalf("seek start offset for %q is 0; expected a non-zero block start for a key this far in", target)
	}

	table := &Table{Path: path, Index: idx, Bloom: filter}
	handles, _ := NewHandleCache(4)
	defer handles.CloseAll()

	got, ok, err := table.Get(target, handles)
	if err != nil || !ok || got != "value-137-padding" {
		t.Fatalf("Get(%q) = %q, %v, %v", target, got, ok, err)
	}
}

func TestScanExistingRebuildsIndexIdenticallyToWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstable_0.txt")

	var kvs []KV
	for i := 0; i < 60; i++ {
		kvs = append(kvs, KV{Key: fmt.Sprintf("key%03d", i), Value: fmt.Sprintf("value-of-%d", i)})
	}
	wantIdx, _, err := Write(path, kvs, 128, 0.01)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	gotIdx, filter, err := ScanExisting(path, 128, 0.01)
	if err != nil {
		t.Fatalf("ScanExisting: %v", err)
	}
	if len(gotIdx.Entries) != len(wantIdx.Entries) {
		t.Fatalf("got %d index entries from scan, want %d from write", len(gotIdx.Entries), len(wantIdx.Entries))
	}
	for i := range wantIdx.Entries {
		if gotIdx.Entries[i] != wantIdx.Entries[i] {
			t.Fatalf("index entry %d = %+v, want %+v", i, gotIdx.Entries[i], wantIdx.Entries[i])
		}
	}

	table := &Table{Path: path, Index: gotIdx, Bloom: filter}
	handles, _ := NewHandleCache(4)
	defer handles.CloseAll()
	got, ok, err := table.Get("key042", handles)
	if err != nil || !ok || got != "value-of-42" {
		t.Fatalf("Get(key042) via rebuilt index = %q, %v, %v", got, ok, err)
	}
}

package sstable

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bits-and-blooms/bloom/v3"

	"minilsm/internal/record"
)

// Table is a read-only descriptor for one immutable SST: its path, the
// generation number parsed from its filename, and the sparse index and
// Bloom filter used to bound a point lookup.
type Table struct {
	Path  string
	N     int
	Index *Index
	Bloom *bloom.BloomFilter
}

// Get looks up key in this SST. It returns ok=false with a nil error for a
// genuine absence. A non-nil error means the file could not be consulted
// at all (open/seek/read failure); per spec.md §7.1 the caller treats that
// as an empty SST and continues to the next older one rather than failing
// the whole Get.
func (t *Table) Get(key string, handles *HandleCache) (string, bool, error) {
	if t.Bloom != nil && !t.Bloom.Test([]byte(key)) {
		return "", false, nil
	}

	start, stop, hasStop, found := t.Index.bounds(key)
	if !found {
		return "", false, nil
	}

	file, err := handles.Open(t.Path)
	if err != nil {
		return "", false, fmt.Errorf("sstable: open %s: %w", t.Path, err)
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return "", false, fmt.Errorf("sstable: seek %s: %w", t.Path, err)
	}

	r := bufio.NewReader(file)
	pos := start
	for {
		if hasStop && pos >= stop {
			return "", false, nil
		}
		line, err, partial := record.ReadLine(r)
		if err != nil {
			if err != io.EOF {
				return "", false, fmt.Errorf("sstable: read %s: %w", t.Path, err)
			}
			// EOF, possibly with a trailing partial line; either way the
			// key is not in this block.
			_ = partial
			return "", false, nil
		}
		pos += int64(len(line)) + 1

		fileKey, fileValue, ok := record.Decode(line)
		if !ok {
			continue
		}
		if fileKey == key {
			return fileValue, true, nil
		}
		if fileKey > key {
			return "", false, nil
		}
	}
}

// ScanExisting rebuilds the sparse index and Bloom filter for an SST file
// already on disk, by one sequential pass over its records. This backs the
// startup scan (spec.md §9): SSTs left over from a prior session are
// invisible to reads until their index is rebuilt this way.
func ScanExisting(path string, indexInterval int64, bloomFalsePositiveRate float64) (*Index, *bloom.BloomFilter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("sstable: open %s for scan: %w", path, err)
	}
	defer file.Close()

	idx := &Index{}
	var keys []string
	var offset int64

	r := bufio.NewReader(file)
	for {
		line, err, _ := record.ReadLine(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("sstable: scan %s: %w", path, err)
		}
		key, _, ok := record.Decode(line)
		if !ok {
			offset += int64(len(line)) + 1
			continue
		}
		idx.add(key, offset, indexInterval)
		keys = append(keys, key)
		offset += int64(len(line)) + 1
	}

	filter := bloom.NewWithEstimates(estimateN(len(keys)), bloomFalsePositiveRate)
	for _, k := range keys {
		filter.Add([]byte(k))
	}
	return idx, filter, nil
}

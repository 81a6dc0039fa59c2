package sstable

import (
	"bufio"
	"fmt"
	"os"

	"github.com/bits-and-blooms/bloom/v3"

	"minilsm/internal/record"
)

// KV is one key/value pair in the sorted stream handed to Write.
type KV struct {
	Key   string
	Value string
}

// Write serializes the already key-sorted stream kvs to path, producing a
// valid SST (spec.md §6) and returning the sparse index and Bloom filter
// built in the same pass.
//
// kvs must be strictly ascending by key; the caller (the engine, draining
// a memtable's SortedEntries) already guarantees this.
func Write(path string, kvs []KV, indexInterval int64, bloomFalsePositiveRate float64) (*Index, *bloom.BloomFilter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("sstable: create %s: %w", path, err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	idx := &Index{}
	filter := bloom.NewWithEstimates(estimateN(len(kvs)), bloomFalsePositiveRate)

	var offset int64
	for _, kv := range kvs {
		idx.add(kv.Key, offset, indexInterval)
		line := record.Encode(kv.Key, kv.Value) + "\n"
		n, err := bw.WriteString(line)
		if err != nil {
			return nil, nil, fmt.Errorf("sstable: write %s: %w", path, err)
		}
		filter.Add([]byte(kv.Key))
		offset += int64(n)
	}

	if err := bw.Flush(); err != nil {
		return nil, nil, fmt.Errorf("sstable: flush %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		return nil, nil, fmt.Errorf("sstable: sync %s: %w", path, err)
	}
	return idx, filter, nil
}

func estimateN(n int) uint {
	if n < 1 {
		return 1
	}
	return uint(n)
}

package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"minilsm/internal/record"
	"minilsm/internal/sstable"
)

// Compact merges the entire SST registry into a single new SST, keeping
// only the newest record for each key and dropping tombstones, then
// removes the old files. It is named in spec.md §1 as an external
// collaborator specified only at its interface: THE CORE's invariants
// never assume it runs, and nothing in Put/Delete/Get/Flush calls it.
//
// With zero or one SST in the registry Compact does nothing, so tombstones
// in a lone SST are kept. If no live record survives the merge, no new
// file is written and the registry ends empty.
//
// Compact does not touch the memtable or the WAL; callers wanting a fully
// consistent snapshot should Flush first.
func (e *Engine) Compact() error {
	if len(e.registry) <= 1 {
		return nil
	}

	seen := make(map[string]bool)
	live := make(map[string]string)

	for i := len(e.registry) - 1; i >= 0; i-- {
		table := e.registry[i]
		keys, values, err := scanAll(table.Path)
		if err != nil {
			return fmt.Errorf("engine: compact: scan %s: %w", table.Path, err)
		}
		for j, key := range keys {
			if seen[key] {
				continue
			}
			seen[key] = true
			if values[j] != record.Tombstone {
				live[key] = values[j]
			}
		}
	}

	keys := make([]string, 0, len(live))
	for k := range live {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	oldPaths := make([]string, len(e.registry))
	for i, t := range e.registry {
		oldPaths[i] = t.Path
	}

	n := e.nextN
	e.nextN++
	filename := fmt.Sprintf("sstable_%d.txt", n)
	path := filepath.Join(e.cfg.DataDir, filename)

	if len(keys) == 0 {
		// Every record across every SST was shadowed or tombstoned; the
		// compacted store is empty, so there's nothing to write.
		e.registry = nil
	} else {
		kvs := make([]sstable.KV, len(keys))
		for i, k := range keys {
			kvs[i] = sstable.KV{Key: k, Value: live[k]}
		}
		idx, filter, err := sstable.Write(path, kvs, e.cfg.IndexInterval, e.cfg.BloomFalsePositiveRate)
		if err != nil {
			e.nextN--
			return fmt.Errorf("engine: compact: write %s: %w", path, err)
		}
		e.registry = []*sstable.Table{{Path: path, N: n, Index: idx, Bloom: filter}}
	}

	for _, p := range oldPaths {
		e.handles.Evict(p)
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("engine: compact: remove old sst %s: %w", p, err)
		}
	}
	return nil
}

// scanAll reads every record of an SST file in on-disk order (which, for
// an SST, is ascending key order).
func scanAll(path string) (keys, values []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	for {
		line, err, _ := record.ReadLine(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, err
		}
		key, value, ok := record.Decode(line)
		if !ok {
			continue
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	return keys, values, nil
}

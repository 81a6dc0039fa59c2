// Package engine implements the orchestrator described in spec.md §4.5:
// it owns the memtable, the WAL handle, and the ordered registry of SST
// descriptors, and exposes Put, Delete, Get, and Flush.
package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/gofrs/flock"

	"minilsm/internal/config"
	"minilsm/internal/omap"
	"minilsm/internal/record"
	"minilsm/internal/sstable"
	"minilsm/internal/wal"
)

var sstableFilename = regexp.MustCompile(`^sstable_(\d+)\.txt$`)

// Engine is a single, non-concurrent-safe instance of the store. It
// assumes exclusive ownership of cfg.DataDir and cfg.WALPath for its
// lifetime (spec.md §5); Open enforces that across OS processes with an
// exclusive flock on DataDir, rejecting a second instance rather than
// silently corrupting state.
type Engine struct {
	cfg config.Config

	mem     *omap.Map
	memSize int64

	wal *wal.WAL

	// registry is ordered oldest-first; Get scans it newest-first.
	registry []*sstable.Table
	nextN    int

	handles *sstable.HandleCache
	lock    *flock.Flock
}

// Open constructs an Engine, performing the startup sequence from
// spec.md §4.5 and §9: ensure the data directory exists, enumerate and
// rebuild the index/Bloom filter for any SSTs left over from a prior
// session, replay the WAL into a fresh memtable, and flush if that alone
// already exceeds the threshold.
//
// Failure to create the data directory, to acquire the exclusivity lock,
// or to open the WAL for append is fatal per spec.md §7.4: Open returns an
// error and the caller must not proceed.
func Open(opts ...config.Option) (*Engine, error) {
	cfg := config.Apply(opts...)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("engine: create data dir %s: %w", cfg.DataDir, err)
	}
	if dir := filepath.Dir(cfg.WALPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("engine: create wal dir %s: %w", dir, err)
		}
	}

	lock := flock.New(filepath.Join(cfg.DataDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("engine: acquire lock on %s: %w", cfg.DataDir, err)
	}
	if !locked {
		return nil, fmt.Errorf("engine: data dir %s is locked by another engine instance", cfg.DataDir)
	}

	handles, err := sstable.NewHandleCache(cfg.HandleCacheSize)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("engine: create handle cache: %w", err)
	}

	registry, nextN, err := discoverTables(cfg)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	w, err := wal.Open(cfg.WALPath)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("engine: open wal: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		mem:      omap.New(),
		wal:      w,
		registry: registry,
		nextN:    nextN,
		handles:  handles,
		lock:     lock,
	}

	if err := e.recoverFromWAL(); err != nil {
		w.Close()
		lock.Unlock()
		return nil, fmt.Errorf("engine: recover from wal: %w", err)
	}

	if e.memSize > e.cfg.MemtableThreshold {
		if err := e.Flush(); err != nil {
			w.Close()
			lock.Unlock()
			return nil, fmt.Errorf("engine: startup flush: %w", err)
		}
	}

	return e, nil
}

// discoverTables globs cfg.DataDir for sstable_<N>.txt, rebuilds each
// table's sparse index and Bloom filter with one sequential scan, and
// returns the registry in ascending N order along with the next counter
// value (spec.md §9, "SST discovery at startup").
func discoverTables(cfg config.Config) ([]*sstable.Table, int, error) {
	entries, err := os.ReadDir(cfg.DataDir)
	if err != nil {
		return nil, 0, fmt.Errorf("engine: read data dir %s: %w", cfg.DataDir, err)
	}

	var tables []*sstable.Table
	maxN := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := sstableFilename.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		path := filepath.Join(cfg.DataDir, entry.Name())
		idx, filter, err := sstable.ScanExisting(path, cfg.IndexInterval, cfg.BloomFalsePositiveRate)
		if err != nil {
			log.Printf("engine: skipping unreadable SST %s: %v", path, err)
			continue
		}
		tables = append(tables, &sstable.Table{Path: path, N: n, Index: idx, Bloom: filter})
		if n > maxN {
			maxN = n
		}
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].N < tables[j].N })
	return tables, maxN + 1, nil
}

// recoverFromWAL replays every record from the WAL into the memtable,
// charging the byte counter the same way Put does, without re-appending
// to the WAL (spec.md §4.5 step 2).
func (e *Engine) recoverFromWAL() error {
	records, err := wal.Replay(e.cfg.WALPath)
	if err != nil {
		return err
	}
	for _, r := range records {
		e.mem.Insert(r.Key, r.Value)
		e.memSize += int64(len(r.Key) + len(r.Value))
	}
	return nil
}

// Put stores value under key, encoding it as a tombstone-shadowed write
// like any other record. The WAL is appended before the memtable is
// touched; if that append fails the mutation is aborted and does not
// happen (spec.md §4.2, §7.1).
func (e *Engine) Put(key, value string) error {
	if err := record.Validate(key, value); err != nil {
		return err
	}
	return e.apply(key, value)
}

// Delete marks key as deleted by writing the Tombstone sentinel,
// equivalent to Put(key, Tombstone) per spec.md §4.5.
func (e *Engine) Delete(key string) error {
	if err := record.Validate(key, record.Tombstone); err != nil {
		return err
	}
	return e.apply(key, record.Tombstone)
}

func (e *Engine) apply(key, value string) error {
	if err := e.wal.Append(key, value); err != nil {
		return fmt.Errorf("engine: wal append: %w", err)
	}
	e.mem.Insert(key, value)
	e.memSize += int64(len(key) + len(value))

	if e.memSize > e.cfg.MemtableThreshold {
		if err := e.Flush(); err != nil {
			// The mutation is already durable in the WAL; flush failure
			// leaves memtable and WAL intact, to be retried on the next
			// flush attempt (spec.md §7.1).
			return fmt.Errorf("engine: flush: %w", err)
		}
	}
	return nil
}

// Get looks up key: the memtable first, then the SST registry
// newest-to-oldest, each via its sparse index and Bloom filter. A
// tombstone, wherever found, shadows every older value for the same key
// and resolves to absent.
func (e *Engine) Get(key string) (string, bool) {
	if value, ok := e.mem.Get(key); ok {
		if value == record.Tombstone {
			return "", false
		}
		return value, true
	}

	for i := len(e.registry) - 1; i >= 0; i-- {
		table := e.registry[i]
		value, ok, err := table.Get(key, e.handles)
		if err != nil {
			log.Printf("engine: treating unreadable SST %s as empty for this lookup: %v", table.Path, err)
			continue
		}
		if !ok {
			continue
		}
		if value == record.Tombstone {
			return "", false
		}
		return value, true
	}
	return "", false
}

// Flush drains the memtable into a new SST and truncates the WAL. It is a
// no-op on an empty memtable (spec.md §8, "Flush idempotence"). The
// ordering — write and close the SST, append it to the registry, truncate
// the WAL, clear the memtable — matches spec.md §4.5's crash-window
// analysis: a crash before the registry update leaves the new SST
// unreferenced but harmless; a crash after but before the WAL truncation
// re-replays records that are already in the SST, which is a shadowing
// no-op, not a correctness bug.
func (e *Engine) Flush() error {
	if e.mem.IsEmpty() {
		return nil
	}

	n := e.nextN
	e.nextN++
	filename := fmt.Sprintf("sstable_%d.txt", n)
	path := filepath.Join(e.cfg.DataDir, filename)

	entries := e.mem.SortedEntries()
	kvs := make([]sstable.KV, len(entries))
	for i, ent := range entries {
		kvs[i] = sstable.KV{Key: ent.Key, Value: ent.Value}
	}

	idx, filter, err := sstable.Write(path, kvs, e.cfg.IndexInterval, e.cfg.BloomFalsePositiveRate)
	if err != nil {
		e.nextN--
		return fmt.Errorf("engine: write sst %s: %w", path, err)
	}

	e.registry = append(e.registry, &sstable.Table{Path: path, N: n, Index: idx, Bloom: filter})

	if err := e.wal.Truncate(); err != nil {
		return fmt.Errorf("engine: truncate wal: %w", err)
	}

	e.mem.Clear()
	e.memSize = 0
	return nil
}

// Close flushes the WAL writer and releases the data-directory lock. It
// does not flush the memtable; an unflushed memtable is recovered from
// the WAL on the next Open.
func (e *Engine) Close() error {
	e.handles.CloseAll()
	walErr := e.wal.Close()
	lockErr := e.lock.Unlock()
	if walErr != nil {
		return walErr
	}
	return lockErr
}

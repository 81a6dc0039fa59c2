// Package config holds the engine's tunables. There is no file format:
// nothing in this store's lineage reaches for one at this layer, so a
// plain struct plus functional options (consumed by engine.Open) stands
// in for it, the way the teacher's own DB constructor takes a bare
// directory string.
package config

// Config controls memtable flushing, SST indexing, and the engine's
// on-disk layout.
type Config struct {
	// MemtableThreshold is the byte count that triggers a flush once
	// exceeded. spec.md §3 reference value: 1024.
	MemtableThreshold int64

	// IndexInterval is the minimum byte gap between consecutive sparse
	// index entries. spec.md §3 reference value: 128.
	IndexInterval int64

	// WALPath is the fixed path to the write-ahead log.
	WALPath string

	// DataDir is the directory SST files live in.
	DataDir string

	// HandleCacheSize bounds how many open SST read handles are kept
	// around at once (spec.md §9, "Ownership of SST files").
	HandleCacheSize int

	// BloomFalsePositiveRate sizes the per-SST Bloom filter built
	// alongside the sparse index at flush time and at startup scan.
	BloomFalsePositiveRate float64
}

// Default returns the reference configuration from spec.md §3 and §6,
// with new defaults for the handle cache and Bloom filter this expansion
// adds.
func Default() Config {
	return Config{
		MemtableThreshold:      1024,
		IndexInterval:          128,
		WALPath:                "temp/wal.log",
		DataDir:                ".",
		HandleCacheSize:        32,
		BloomFalsePositiveRate: 0.01,
	}
}

// Option mutates a Config; passed to engine.Open after config.Default().
type Option func(*Config)

// WithDataDir overrides the SST directory.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithWALPath overrides the WAL path.
func WithWALPath(path string) Option {
	return func(c *Config) { c.WALPath = path }
}

// WithMemtableThreshold overrides the flush trigger.
func WithMemtableThreshold(n int64) Option {
	return func(c *Config) { c.MemtableThreshold = n }
}

// WithIndexInterval overrides the sparse-index gap.
func WithIndexInterval(n int64) Option {
	return func(c *Config) { c.IndexInterval = n }
}

// WithHandleCacheSize overrides the open-handle LRU capacity.
func WithHandleCacheSize(n int) Option {
	return func(c *Config) { c.HandleCacheSize = n }
}

// Apply folds a list of options onto Default().
func Apply(opts ...Option) Config {
	c := Default()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

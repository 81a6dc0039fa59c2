package sstable

import (
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// HandleCache bounds the number of open SST read handles kept around across
// lookups, evicting (and closing) the least-recently-used handle once
// capacity is exceeded. This is the optimization spec.md §9's "Ownership
// of SST files" note allows explicitly: Tables hold no file handle
// themselves, readers open and close "per lookup" is relaxed to "per
// lookup against this cache" without changing what Get returns.
type HandleCache struct {
	cache *lru.Cache[string, *os.File]
}

// NewHandleCache returns a cache holding at most size open handles.
func NewHandleCache(size int) (*HandleCache, error) {
	if size < 1 {
		size = 1
	}
	cache, err := lru.NewWithEvict[string, *os.File](size, func(_ string, f *os.File) {
		f.Close()
	})
	if err != nil {
		return nil, err
	}
	return &HandleCache{cache: cache}, nil
}

// Open returns an open handle for path, reusing a cached one if present.
func (hc *HandleCache) Open(path string) (*os.File, error) {
	if f, ok := hc.cache.Get(path); ok {
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hc.cache.Add(path, f)
	return f, nil
}

// Evict closes and drops the cached handle for path, if any. Called when
// an SST is removed from the registry (e.g. after Compact).
func (hc *HandleCache) Evict(path string) {
	hc.cache.Remove(path)
}

// CloseAll evicts and closes every cached handle.
func (hc *HandleCache) CloseAll() {
	for _, k := range hc.cache.Keys() {
		hc.cache.Remove(k)
	}
}

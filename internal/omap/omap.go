// Package omap provides the memtable's ordered in-memory mapping: point
// insert/update, point lookup, and ascending-key enumeration.
//
// The balancing algorithm is not an externally observable property of this
// store (spec.md §4.1), so rather than hand-rolling a red-black tree this
// wraps github.com/huandu/skiplist, the teacher repo's own ordered
// structure, with a byte-wise key comparator.
package omap

import "github.com/huandu/skiplist"

type stringKeys struct{}

func (stringKeys) Compare(lhs, rhs interface{}) int {
	a, b := lhs.(string), rhs.(string)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CalcScore is required by skiplist.Comparable but unused by this store;
// skiplist only calls it for its own internal score caching, which this
// comparator does not rely on for correctness.
func (stringKeys) CalcScore(key interface{}) float64 {
	return 0
}

// Map is an ordered mapping from string key to string value.
type Map struct {
	list *skiplist.SkipList
}

// New returns an empty ordered map.
func New() *Map {
	return &Map{list: skiplist.New(stringKeys{})}
}

// Insert adds key if absent, or overwrites its value if present.
func (m *Map) Insert(key, value string) {
	m.list.Set(key, value)
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (string, bool) {
	elem := m.list.Get(key)
	if elem == nil {
		return "", false
	}
	return elem.Value.(string), true
}

// Entry is one key/value pair as yielded by SortedEntries.
type Entry struct {
	Key   string
	Value string
}

// SortedEntries returns every entry in ascending key order. The caller is
// expected to hold the only reference to m for the duration of the call
// (the engine satisfies this by draining the memtable before clearing it).
func (m *Map) SortedEntries() []Entry {
	entries := make([]Entry, 0, m.list.Len())
	for elem := m.list.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, Entry{Key: elem.Key().(string), Value: elem.Value.(string)})
	}
	return entries
}

// IsEmpty reports whether the map has no entries.
func (m *Map) IsEmpty() bool {
	return m.list.Len() == 0
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return m.list.Len()
}

// Clear removes every entry, releasing the underlying skiplist.
func (m *Map) Clear() {
	m.list = skiplist.New(stringKeys{})
}

package sstable

import "sort"

// IndexEntry is one sparse-index entry: the key of the record that begins
// at Offset.
type IndexEntry struct {
	Key    string
	Offset int64
}

// Index is the sparse, in-memory key->offset map built during a write or
// rebuilt by a startup scan. Entries are kept in ascending key order.
type Index struct {
	Entries []IndexEntry
}

// add records an index entry if idx is empty or pos has advanced at least
// interval bytes past the last indexed offset, mirroring spec.md §4.3
// step 2 exactly.
func (idx *Index) add(key string, pos, interval int64) {
	if len(idx.Entries) == 0 || pos-idx.Entries[len(idx.Entries)-1].Offset >= interval {
		idx.Entries = append(idx.Entries, IndexEntry{Key: key, Offset: pos})
	}
}

// bounds returns the byte range [start, stop) that must contain key if it
// is present in the SST: start is the offset of the greatest indexed key
// <= key, and stop is the offset of the next index entry, or hasStop=false
// if the floor entry is the last one (the block runs to EOF). found is
// false when key is strictly less than every indexed key.
func (idx *Index) bounds(key string) (start, stop int64, hasStop, found bool) {
	if len(idx.Entries) == 0 {
		return 0, 0, false, false
	}
	// First index i with Entries[i].Key > key; the floor entry is i-1.
	i := sort.Search(len(idx.Entries), func(i int) bool {
		return idx.Entries[i].Key > key
	})
	if i == 0 {
		return 0, 0, false, false
	}
	floor := idx.Entries[i-1]
	if i < len(idx.Entries) {
		return floor.Offset, idx.Entries[i].Offset, true, true
	}
	return floor.Offset, 0, false, true
}

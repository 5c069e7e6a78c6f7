// Package segtable implements the in-memory segment table: the registry of
// currently-mapped segments within one library instance, plus the set of
// segments currently owned by an open transaction (the "being-modified"
// set). It collapses the three parallel name/base/reverse maps of a
// pointer-based design into a single name-keyed map, since a Go segment
// handle already carries its own name.
package segtable

import "sync"

// Segment is one mapped segment's table entry: its name, its size, and the
// live buffer a caller is allowed to read and write between Map and Unmap.
type Segment struct {
	Name string
	Buf  []byte
}

// Table is the per-library registry of mapped segments and the
// being-modified set enforcing the single-writer-per-segment rule.
type Table struct {
	mu     sync.Mutex
	byName map[string]*Segment
	busy   map[*Segment]struct{}
}

// New returns an empty table.
func New() *Table {
	return &Table{
		byName: make(map[string]*Segment),
		busy:   make(map[*Segment]struct{}),
	}
}

// Lookup returns the mapped segment with the given name, if any.
func (t *Table) Lookup(name string) (*Segment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seg, ok := t.byName[name]
	return seg, ok
}

// Insert registers a newly mapped segment. The caller must ensure name is
// not already mapped.
func (t *Table) Insert(seg *Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName[seg.Name] = seg
}

// Erase removes a segment from the table entirely, including from the
// being-modified set.
func (t *Table) Erase(seg *Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byName, seg.Name)
	delete(t.busy, seg)
}

// IsBusy reports whether seg is currently owned by an open transaction.
func (t *Table) IsBusy(seg *Segment) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.busy[seg]
	return ok
}

// MarkBusy claims every segment in segs for the being-modified set,
// all-or-nothing: if any segment is already busy, the table is left
// unchanged and ok is false.
func (t *Table) MarkBusy(segs ...*Segment) (ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, seg := range segs {
		if _, busy := t.busy[seg]; busy {
			return false
		}
	}
	for _, seg := range segs {
		t.busy[seg] = struct{}{}
	}
	return true
}

// ClearBusy releases every segment in segs from the being-modified set.
func (t *Table) ClearBusy(segs ...*Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, seg := range segs {
		delete(t.busy, seg)
	}
}

// Len returns the number of currently mapped segments.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}

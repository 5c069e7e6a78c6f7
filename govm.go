// Package govm is a recoverable virtual memory library: it lets a process
// allocate named byte segments that live both in memory and on a
// persistent backing store, mutate those segments inside transactions, and
// recover the last committed state after a crash or restart. The caller
// sees an ordinary byte slice; once a transaction commits, the library
// guarantees its effects are durable, and otherwise the segment appears
// unchanged.
//
// A Library is bound to one backing-store directory and is process-lifetime:
// it has no explicit Close, since there is nothing to flush that Commit
// didn't already make durable. All exported methods on Library and Tx must
// be serialized by the caller if more than one goroutine is involved in
// driving a single Library — see Library's doc comment for the locking this
// package does provide.
package govm

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/tombuente/govm/internal/recovery"
	"github.com/tombuente/govm/internal/segtable"
	"github.com/tombuente/govm/internal/store"
)

// Library is an opened backing-store directory together with the in-memory
// segment table tracking what is currently mapped. The zero value is not
// usable; construct one with Open.
//
// mu guards the segment table and being-modified set, so concurrent callers
// of Map, Unmap, Destroy, Begin, and TruncateLog cannot race each other.
type Library struct {
	mu      sync.Mutex
	store   *store.Store
	table   *segtable.Table
	fsync   bool
	dirPerm os.FileMode
	logger  log.Logger
}

// Open binds a Library to dir, creating the directory if it does not
// already exist. It never scans dir for pre-existing segments: the segment
// table starts empty and is populated by explicit Map calls, exactly as the
// on-disk layout has no manifest of its own.
func Open(dir string, opts ...Option) (*Library, error) {
	lib := &Library{
		table:   segtable.New(),
		dirPerm: 0o700,
		logger:  log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(lib)
	}

	st, err := store.Open(dir, lib.dirPerm)
	if err != nil {
		return nil, fmt.Errorf("govm: open %q: %w", dir, err)
	}
	lib.store = st

	return lib, nil
}

// Segment is a strongly-typed handle to a mapped segment: a named,
// contiguous byte region living both in this Library's memory and on disk.
// Obtain one from Map; it is valid until the matching Unmap.
type Segment struct {
	lib *Library
	tbl *segtable.Segment
}

// Name returns the segment's name.
func (s *Segment) Name() string { return s.tbl.Name }

// Size returns the segment's current size in bytes.
func (s *Segment) Size() int { return len(s.tbl.Buf) }

// Bytes returns the live, mutable buffer backing this segment. The slice is
// borrowed from the Library: callers may read and write it freely between
// Map and Unmap, but writes are only made durable by committing a
// transaction that declared the written range with AboutToModify first.
func (s *Segment) Bytes() []byte { return s.tbl.Buf }

// Map attaches the named segment to the Library, creating it if no data
// file exists yet. If creationSize is larger than the data file's current
// size, the file is extended to creationSize bytes (zero-filled); otherwise
// the file's existing size is used as-is. Any pending log file is replayed
// into the returned buffer and folded back into the data file before Map
// returns, so a segment mapped right after an unclean shutdown reflects
// every completely-written commit record.
//
// Mapping a name that is already mapped in this Library returns
// ErrAlreadyMapped.
func (l *Library) Map(name string, creationSize int) (*Segment, error) {
	if l == nil {
		return nil, ErrInvalidArgument
	}
	if !store.ValidName(name) {
		return nil, fmt.Errorf("%w: invalid segment name %q", ErrInvalidArgument, name)
	}
	if creationSize < 0 {
		return nil, fmt.Errorf("%w: negative creation size", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.table.Lookup(name); ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyMapped, name)
	}

	buf, err := recovery.LoadSegment(l.store, name, creationSize)
	if err != nil {
		return nil, fmt.Errorf("govm: map %q: %w", name, err)
	}

	tblSeg := &segtable.Segment{Name: name, Buf: buf}
	l.table.Insert(tblSeg)

	level.Debug(l.logger).Log("msg", "map", "segment", name, "size", len(buf))

	return &Segment{lib: l, tbl: tblSeg}, nil
}

// Unmap releases seg's in-memory buffer and removes it from the segment
// table. It does not flush anything to disk — all durable state is reached
// only through Commit. Unmapping a segment that is currently owned by an
// open transaction is a misuse the caller must avoid; behavior in that case
// is undefined but crash-safe, since Commit is the only durability event.
func (l *Library) Unmap(seg *Segment) error {
	if l == nil || seg == nil {
		return ErrInvalidArgument
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mapped, ok := l.table.Lookup(seg.tbl.Name)
	if !ok || mapped != seg.tbl {
		return fmt.Errorf("%w: %q", ErrNotMapped, seg.tbl.Name)
	}

	l.table.Erase(seg.tbl)
	level.Debug(l.logger).Log("msg", "unmap", "segment", seg.tbl.Name)
	return nil
}

// Destroy unlinks the data and log files for the named segment. It is a
// no-op, not an error, if the segment is currently mapped — the caller must
// Unmap first.
func (l *Library) Destroy(name string) error {
	if l == nil {
		return ErrInvalidArgument
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.table.Lookup(name); ok {
		return nil
	}

	if err := l.store.Remove(name); err != nil {
		return fmt.Errorf("govm: destroy %q: %w", name, err)
	}
	level.Debug(l.logger).Log("msg", "destroy", "segment", name)
	return nil
}

// TruncateLog checkpoints every segment in the backing store, mapped or
// not: it folds each "*.log" file it finds into its data file and clears
// the log, so that after TruncateLog returns all durable state lives in the
// data files. Running it twice in a row on a quiescent library is a no-op
// the second time, since there is nothing left to fold in.
func (l *Library) TruncateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := recovery.Checkpoint(l.store,
		func(name string) (*segtable.Segment, bool) {
			return l.table.Lookup(name)
		},
		func(name string) {
			level.Warn(l.logger).Log("msg", "orphaned log file", "segment", name)
		},
	)
	if err != nil {
		return fmt.Errorf("govm: truncate log: %w", err)
	}

	level.Debug(l.logger).Log("msg", "truncate log complete")
	return nil
}

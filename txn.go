package govm

import (
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/tombuente/govm/internal/changelog"
	"github.com/tombuente/govm/internal/segtable"
	"github.com/tombuente/govm/internal/store"
	"github.com/tombuente/govm/internal/walrecord"
)

// Tx is a bounded set of modifications to a fixed set of segments,
// atomically committed or rolled back. State progresses open -> committed
// or open -> rolledback; there is no nested or re-opened state, and no
// intermediate prepared state.
type Tx struct {
	lib  *Library
	segs []*Segment
	logs map[*Segment]*changelog.Log
	done bool
}

// Begin opens a transaction over segs. Every entry must refer to a segment
// currently mapped in l and not already owned by another open transaction;
// registration is all-or-nothing, so a failed Begin leaves the
// being-modified set exactly as it was.
func (l *Library) Begin(segs ...*Segment) (*Tx, error) {
	if l == nil {
		return nil, ErrInvalidArgument
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: begin requires at least one segment", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tblSegs := make([]*segtable.Segment, len(segs))
	for i, seg := range segs {
		if seg == nil || seg.lib != l {
			return nil, fmt.Errorf("%w: segment not owned by this library", ErrInvalidArgument)
		}
		mapped, ok := l.table.Lookup(seg.tbl.Name)
		if !ok || mapped != seg.tbl {
			return nil, fmt.Errorf("%w: %q", ErrNotMapped, seg.tbl.Name)
		}
		tblSegs[i] = seg.tbl
	}

	if !l.table.MarkBusy(tblSegs...) {
		return nil, fmt.Errorf("%w", ErrSegmentBusy)
	}

	tx := &Tx{
		lib:  l,
		segs: append([]*Segment(nil), segs...),
		logs: make(map[*Segment]*changelog.Log, len(segs)),
	}
	for _, seg := range segs {
		tx.logs[seg] = &changelog.Log{}
	}

	level.Debug(l.logger).Log("msg", "begin", "segments", len(segs))
	return tx, nil
}

// AboutToModify declares that the caller is about to overwrite
// buf[offset:offset+size] of seg, where buf is seg.Bytes(). The current
// contents of that range are copied out as a pre-image before the caller
// is allowed to mutate them, so Rollback can restore them later. Multiple
// calls on overlapping or identical ranges are legal; each captures the
// pre-image as of the moment it is called.
func (t *Tx) AboutToModify(seg *Segment, offset, size int) error {
	if t == nil {
		return ErrInvalidArgument
	}
	if t.done {
		return ErrTxClosed
	}

	clog, participates := t.logs[seg]
	if !participates {
		return fmt.Errorf("%w: segment %q is not part of this transaction", ErrInvalidArgument, seg.Name())
	}
	if offset < 0 || size < 0 || offset+size > seg.Size() {
		return fmt.Errorf("%w: range [%d:%d) out of bounds for segment %q of size %d",
			ErrInvalidArgument, offset, offset+size, seg.Name(), seg.Size())
	}

	clog.Capture(seg.tbl.Buf, offset, size)
	return nil
}

// Commit writes every participating segment's declared changes to its
// on-disk log as post-image records, in AboutToModify order, then releases
// the segments from the being-modified set and ends the transaction. Once
// Commit returns with a nil error the changes are durable: a crash
// immediately after will replay them on the next Map or TruncateLog. If
// writing a segment's log fails partway through, Commit returns an error
// naming that segment; logs already written for earlier segments in this
// transaction remain on disk as a valid (if partial, across segments)
// commit and will still be folded in by recovery.
func (t *Tx) Commit() error {
	if t == nil {
		return ErrInvalidArgument
	}
	if t.done {
		return ErrTxClosed
	}

	l := t.lib
	var commitErr error
	for _, seg := range t.segs {
		if err := t.commitSegment(seg); err != nil {
			commitErr = fmt.Errorf("govm: commit segment %q: %w", seg.Name(), err)
			break
		}
	}

	t.end()

	if commitErr != nil {
		return commitErr
	}
	level.Debug(l.logger).Log("msg", "commit", "segments", len(t.segs))
	return nil
}

func (t *Tx) commitSegment(seg *Segment) error {
	entries := t.logs[seg].Entries()

	logFile, err := t.lib.store.OpenLog(seg.Name())
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := func() error {
		if err := store.TruncateToZero(logFile); err != nil {
			return err
		}
		for _, e := range entries {
			end := e.Offset + int64(len(e.Before))
			rec := walrecord.Record{Offset: e.Offset, Data: seg.tbl.Buf[e.Offset:end]}
			if _, err := walrecord.WriteTo(logFile, rec); err != nil {
				return fmt.Errorf("write record at offset %d: %w", e.Offset, err)
			}
		}
		if t.lib.fsync {
			if err := logFile.Sync(); err != nil {
				return fmt.Errorf("sync log file: %w", err)
			}
		}
		return nil
	}(); err != nil {
		return err
	}

	return nil
}

// Rollback restores every participating segment's declared ranges to their
// pre-transaction contents, walking each segment's captured changes in
// reverse order so that the earliest pre-image wins when ranges overlap,
// then releases the segments and ends the transaction. No log-file I/O
// occurs.
func (t *Tx) Rollback() error {
	if t == nil {
		return ErrInvalidArgument
	}
	if t.done {
		return ErrTxClosed
	}

	for _, seg := range t.segs {
		t.logs[seg].RestoreInto(seg.tbl.Buf)
	}

	t.end()
	level.Debug(t.lib.logger).Log("msg", "rollback", "segments", len(t.segs))
	return nil
}

// end releases every participating segment from the being-modified set and
// marks the transaction closed. Caller must hold no lock; end takes it.
func (t *Tx) end() {
	t.lib.mu.Lock()
	defer t.lib.mu.Unlock()

	tblSegs := make([]*segtable.Segment, len(t.segs))
	for i, seg := range t.segs {
		tblSegs[i] = seg.tbl
	}
	t.lib.table.ClearBusy(tblSegs...)
	t.done = true
}

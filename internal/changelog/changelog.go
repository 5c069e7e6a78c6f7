// Package changelog holds the in-memory pre-images a transaction captures
// before letting the caller mutate a segment buffer. Pre-images exist only
// to support rollback; they never touch disk. The on-disk write-ahead log
// (see internal/walrecord) carries post-images instead, written at commit.
package changelog

// Entry is one captured pre-image: the bytes that used to live at Offset
// before the caller was allowed to overwrite them.
type Entry struct {
	Offset int64
	Before []byte
}

// Log is the ordered list of pre-images captured for a single segment
// within one transaction, in the order AboutToModify was called.
type Log struct {
	entries []Entry
}

// Capture copies length bytes out of buf starting at offset and appends
// them as a new entry. The caller is expected to have already validated
// offset and length against the segment's bounds.
func (l *Log) Capture(buf []byte, offset, length int) {
	before := make([]byte, length)
	copy(before, buf[offset:offset+length])
	l.entries = append(l.entries, Entry{Offset: int64(offset), Before: before})
}

// Entries returns the captured entries in capture order.
func (l *Log) Entries() []Entry { return l.entries }

// RestoreInto walks the captured entries in reverse order and copies each
// pre-image back into buf, so that the earliest captured pre-image wins
// when ranges overlap.
func (l *Log) RestoreInto(buf []byte) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		copy(buf[e.Offset:e.Offset+int64(len(e.Before))], e.Before)
	}
}

// Package walrecord implements the on-disk log record format used by the
// write-ahead log: a sequence of (offset, length, bytes) post-image records,
// little-endian, with no checksum field (checksumming log entries is out of
// scope for this system). A trailing record that was not fully written
// before a crash is treated as absent rather than as an error, so recovery
// can always apply a prefix of a log file.
package walrecord

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// hdrLen is the size of the (offset, length) header in bytes: two uint64s.
const hdrLen = 16

// Record is a single (offset, bytes) write to apply to a segment buffer.
type Record struct {
	Offset int64
	Data   []byte
}

// WriteTo appends rec to w in the on-disk format and returns the number of
// bytes written.
func WriteTo(w io.Writer, rec Record) (int64, error) {
	buf := make([]byte, hdrLen+len(rec.Data))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(rec.Offset))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(rec.Data)))
	copy(buf[hdrLen:], rec.Data)

	n, err := w.Write(buf)
	return int64(n), err
}

// Scanner reads records from a log file, stopping cleanly at the first
// record whose header or payload was not fully written (a torn tail),
// without treating that as an error.
type Scanner struct {
	r       *bufio.Reader
	record  Record
	err     error
	hasMore bool
}

// NewScanner returns a Scanner reading records from the start of r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Scan advances to the next complete record, returning false when the log
// is exhausted (cleanly, or because the tail is torn) or a real read error
// occurred. Check Err after Scan returns false to distinguish the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	var hdr [hdrLen]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		if !isEOF(err) {
			s.err = fmt.Errorf("read record header: %w", err)
		}
		return false
	}

	length := binary.LittleEndian.Uint64(hdr[8:16])
	data := make([]byte, length)
	if _, err := io.ReadFull(s.r, data); err != nil {
		if !isEOF(err) {
			s.err = fmt.Errorf("read record payload: %w", err)
		}
		// A torn payload means the record's header made it to disk but the
		// bytes didn't: treat it the same as "no more records", not an error.
		return false
	}

	s.record = Record{Offset: int64(binary.LittleEndian.Uint64(hdr[0:8])), Data: data}
	s.hasMore = true
	return true
}

// Record returns the record produced by the most recent successful Scan.
func (s *Scanner) Record() Record { return s.record }

// Err returns the first non-EOF error encountered while scanning, if any.
func (s *Scanner) Err() error { return s.err }

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

// ReadAll reads every syntactically complete record from r in order,
// discarding a torn trailing record rather than failing.
func ReadAll(r io.Reader) ([]Record, error) {
	sc := NewScanner(r)
	var recs []Record
	for sc.Scan() {
		recs = append(recs, sc.Record())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

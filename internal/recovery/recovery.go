// Package recovery implements the crash-recovery and checkpoint logic
// shared between Map (replay-on-attach) and TruncateLog (directory-wide
// checkpoint): folding a segment's on-disk log of post-image records back
// into its data file.
package recovery

import (
	"fmt"
	"io"
	"os"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tombuente/govm/internal/segtable"
	"github.com/tombuente/govm/internal/store"
	"github.com/tombuente/govm/internal/walrecord"
)

// ApplyLog reads every syntactically complete record from logFile (from the
// start of the file) and overwrites the corresponding ranges of buf. A
// torn trailing record is silently discarded, per the write-ahead log's
// recovery contract.
func ApplyLog(buf []byte, logFile *os.File) error {
	if _, err := logFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek log: %w", err)
	}

	recs, err := walrecord.ReadAll(logFile)
	if err != nil {
		return fmt.Errorf("scan log: %w", err)
	}

	for _, rec := range recs {
		end := rec.Offset + int64(len(rec.Data))
		if rec.Offset < 0 || end > int64(len(buf)) {
			// Record falls outside the segment's current bounds; this can
			// only happen if the data file was manually tampered with, so
			// skip rather than panic.
			continue
		}
		copy(buf[rec.Offset:end], rec.Data)
	}
	return nil
}

// RewriteDataFile truncates dataFile and rewrites it in full from buf.
func RewriteDataFile(dataFile *os.File, buf []byte) error {
	if err := store.TruncateToZero(dataFile); err != nil {
		return fmt.Errorf("truncate data file: %w", err)
	}
	if _, err := dataFile.Write(buf); err != nil {
		return fmt.Errorf("rewrite data file: %w", err)
	}
	return nil
}

// LoadSegment implements the Map-time load-and-replay sequence: open the
// data file, determine the effective size (extending the file if
// creationSize calls for a larger one), read it into a fresh buffer, then
// fold in any pending log records and rewrite the data file so the log and
// the data file agree again.
func LoadSegment(st *store.Store, name string, creationSize int) ([]byte, error) {
	dataFile, _, err := st.OpenData(name)
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()

	info, err := dataFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	effective := info.Size()
	if int64(creationSize) > effective {
		if err := store.Extend(dataFile, int64(creationSize)); err != nil {
			return nil, err
		}
		effective = int64(creationSize)
	}

	buf := make([]byte, effective)
	if _, err := dataFile.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	hasLog, err := st.HasLog(name)
	if err != nil {
		return nil, err
	}
	if !hasLog {
		return buf, nil
	}

	logFile, err := st.OpenLog(name)
	if err != nil {
		return nil, err
	}
	defer logFile.Close()

	if err := ApplyLog(buf, logFile); err != nil {
		return nil, err
	}
	if err := RewriteDataFile(dataFile, buf); err != nil {
		return nil, err
	}
	if err := store.TruncateToZero(logFile); err != nil {
		return nil, fmt.Errorf("truncate log file: %w", err)
	}

	return buf, nil
}

// CheckpointMapped folds seg's on-disk log into its data file and truncates
// the log, mutating seg.Buf in place so the live, mapped buffer reflects
// whatever records were folded in.
func CheckpointMapped(st *store.Store, seg *segtable.Segment) error {
	logFile, err := st.OpenLog(seg.Name)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := ApplyLog(seg.Buf, logFile); err != nil {
		return err
	}

	dataFile, _, err := st.OpenData(seg.Name)
	if err != nil {
		return err
	}
	defer dataFile.Close()

	if err := RewriteDataFile(dataFile, seg.Buf); err != nil {
		return err
	}
	return store.TruncateToZero(logFile)
}

// CheckpointUnmapped performs the transient map-then-unmap checkpoint for a
// segment with no live in-memory buffer: load it, fold in its log, rewrite
// the data file, then unlink the log entirely (there is no buffer to leave
// attached to, so unlike CheckpointMapped the log file itself goes away).
func CheckpointUnmapped(st *store.Store, name string) error {
	if _, err := LoadSegment(st, name, 0); err != nil {
		return err
	}
	return st.RemoveLog(name)
}

// Checkpoint walks the backing store for every "*.log" file and folds it
// into its data file, consulting lookup to decide whether a segment is
// currently mapped (and therefore has a live buffer to update in place) or
// not (and therefore needs the transient load/unload path). A log file with
// no corresponding data file is orphaned; onOrphan is called with its name
// before the log is discarded.
func Checkpoint(st *store.Store, lookup func(name string) (*segtable.Segment, bool), onOrphan func(name string)) error {
	logNames, err := st.LogNames()
	if err != nil {
		return err
	}
	dataNames, err := st.DataNames()
	if err != nil {
		return err
	}

	dataSet := mapset.NewSet[string]()
	for _, n := range dataNames {
		dataSet.Add(n)
	}

	for _, name := range logNames {
		if !dataSet.Contains(name) {
			if onOrphan != nil {
				onOrphan(name)
			}
			if err := st.RemoveLog(name); err != nil {
				return err
			}
			continue
		}

		if seg, mapped := lookup(name); mapped {
			if err := CheckpointMapped(st, seg); err != nil {
				return fmt.Errorf("checkpoint mapped segment %q: %w", name, err)
			}
		} else {
			if err := CheckpointUnmapped(st, name); err != nil {
				return fmt.Errorf("checkpoint segment %q: %w", name, err)
			}
		}
	}
	return nil
}

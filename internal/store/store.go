// Package store provides the filesystem primitives the backing store needs:
// a directory holding one data file and an optional companion log file per
// named segment. It never assumes atomic rename is available — segment and
// log files are opened, truncated, and rewritten in place.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const logSuffix = ".log"

// Store is a directory on disk holding segment data and log files.
type Store struct {
	dir     string
	dirPerm os.FileMode
}

// Open creates dir if it does not already exist and returns a Store bound to
// it. An already-existing directory is not an error.
func Open(dir string, dirPerm os.FileMode) (*Store, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir, dirPerm: dirPerm}, nil
}

// Dir returns the backing directory path.
func (s *Store) Dir() string { return s.dir }

// DataPath returns the path of the data file for the named segment.
func (s *Store) DataPath(name string) string {
	return filepath.Join(s.dir, name)
}

// LogPath returns the path of the companion log file for the named segment.
func (s *Store) LogPath(name string) string {
	return filepath.Join(s.dir, name+logSuffix)
}

// OpenData opens the named segment's data file for reading and writing,
// creating it if it does not yet exist. created reports whether this call
// created the file.
func (s *Store) OpenData(name string) (f *os.File, created bool, err error) {
	path := s.DataPath(name)
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		created = true
	}
	f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open data file %q: %w", path, err)
	}
	return f, created, nil
}

// OpenLog opens the named segment's log file for reading and writing,
// creating it if needed. Use HasLog first if you only want to know whether
// one already exists without creating it.
func (s *Store) OpenLog(name string) (*os.File, error) {
	path := s.LogPath(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return f, nil
}

// HasLog reports whether a non-empty log file exists for the named segment.
func (s *Store) HasLog(name string) (bool, error) {
	info, err := os.Stat(s.LogPath(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat log file for %q: %w", name, err)
	}
	return info.Size() > 0, nil
}

// Extend grows f to length bytes by writing a single zero byte at
// length-1, leaving the kernel to zero-fill the gap. It is a no-op if f is
// already at least that long.
func Extend(f *os.File, length int64) error {
	if length <= 0 {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Size() >= length {
		return nil
	}
	if _, err := f.WriteAt([]byte{0}, length-1); err != nil {
		return fmt.Errorf("extend to %d bytes: %w", length, err)
	}
	return nil
}

// TruncateToZero truncates f to an empty file and seeks it back to offset 0
// so the next write starts from the beginning.
func TruncateToZero(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// Remove unlinks both the data file and the log file (if any) for the named
// segment. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if err := removeIfExists(s.DataPath(name)); err != nil {
		return fmt.Errorf("remove data file for %q: %w", name, err)
	}
	if err := removeIfExists(s.LogPath(name)); err != nil {
		return fmt.Errorf("remove log file for %q: %w", name, err)
	}
	return nil
}

// RemoveLog unlinks only the log file for the named segment.
func (s *Store) RemoveLog(name string) error {
	if err := removeIfExists(s.LogPath(name)); err != nil {
		return fmt.Errorf("remove log file for %q: %w", name, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LogNames lists the segment names that currently have a log file on disk,
// i.e. the base name of every "*.log" entry in the directory.
func (s *Store) LogNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, logSuffix) {
			names = append(names, strings.TrimSuffix(n, logSuffix))
		}
	}
	return names, nil
}

// DataNames lists every segment name that currently has a data file on
// disk, i.e. every directory entry that is not itself a "*.log" file.
func (s *Store) DataNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if !strings.HasSuffix(n, logSuffix) {
			names = append(names, n)
		}
	}
	return names, nil
}

// ValidName reports whether name is usable as a segment name: non-empty, no
// path separator, and not itself ending in the log suffix.
func ValidName(name string) bool {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return false
	}
	return !strings.HasSuffix(name, logSuffix)
}

package govm

import "testing"

// setupTempLibrary opens a Library over a fresh temp directory that is
// cleaned up automatically at test end.
func setupTempLibrary(t *testing.T, opts ...Option) (*Library, string) {
	t.Helper()

	dir := t.TempDir()

	lib, err := Open(dir, opts...)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", dir, err)
	}

	return lib, dir
}

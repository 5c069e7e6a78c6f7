package govm

import (
	"os"

	"github.com/go-kit/log"
)

// Option configures a Library at Open time.
type Option func(*Library)

// WithFsync controls whether Commit calls File.Sync on each segment's log
// file before returning. Disabled by default; enable it for true
// crash-safety at the cost of a sync per committed segment per transaction.
func WithFsync(enabled bool) Option {
	return func(l *Library) { l.fsync = enabled }
}

// WithLogger sets the structured logger used for lifecycle tracing (map,
// unmap, commit, rollback, checkpoint). The default is a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithDirPerm sets the permission bits used when creating the backing
// directory, if it does not already exist. Defaults to 0o700.
func WithDirPerm(perm os.FileMode) Option {
	return func(l *Library) { l.dirPerm = perm }
}

package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*FileLock)(nil)

// FileLock implements DistributedLock with lock files next to the database.
// Every process opening the same directory contends for the same files, so
// it serialises builds across CLI runs and servers sharing one SQLite file.
//
// The TTL is ignored: a lock is held until Release or process exit.
type FileLock struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileLock creates a file lock rooted at dir.
func NewFileLock(dir string) *FileLock {
	if dir == "" {
		dir = "."
	}
	return &FileLock{dir: dir, files: make(map[string]*os.File)}
}

// NewFileLockForDB roots the lock next to a database file.
func NewFileLockForDB(dbPath string) *FileLock {
	return NewFileLock(filepath.Dir(dbPath))
}

// Path returns the lock file used for name.
func (l *FileLock) Path(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		if r == ':' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, base)
	return filepath.Join(l.dir, base+".lock")
}

// Acquire takes the lock without blocking.
func (l *FileLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.files[name]; held {
		return false, nil
	}

	f, acquired, err := tryLockFile(l.Path(name))
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", l.Path(name), err)
	}
	if !acquired {
		return false, nil
	}
	l.files[name] = f
	return true, nil
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *FileLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, held := l.files[name]
	if !held {
		return nil
	}
	delete(l.files, name)
	return unlockFile(f)
}

// Extend checks the lock is still held; file locks do not expire.
func (l *FileLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.files[name]; !held {
		return domain.ErrLockNotHeld
	}
	return nil
}

// Ping checks the lock directory is usable.
func (l *FileLock) Ping(ctx context.Context) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("lock path %s is not a directory", l.dir)
	}
	return nil
}

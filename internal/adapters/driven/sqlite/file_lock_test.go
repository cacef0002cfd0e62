package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "releasetrain.db")
	ctx := context.Background()

	a := NewFileLockForDB(dbPath)
	b := NewFileLockForDB(dbPath)

	ok, err := a.Acquire(ctx, dbPath, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Acquire(ctx, dbPath, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "same holder cannot take it twice")

	ok, err = b.Acquire(ctx, dbPath, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, a.Extend(ctx, dbPath, time.Minute))
	require.NoError(t, a.Release(ctx, dbPath))
	assert.ErrorIs(t, a.Extend(ctx, dbPath, time.Minute), domain.ErrLockNotHeld)

	ok, err = b.Acquire(ctx, dbPath, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, dbPath))
	require.NoError(t, b.Release(ctx, dbPath), "double release is a no-op")
}

func TestFileLock_IndependentNames(t *testing.T) {
	l := NewFileLock(t.TempDir())
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "build", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "refresher", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileLock_Path(t *testing.T) {
	l := NewFileLock("/var/lib/lake")
	assert.Equal(t, "/var/lib/lake/releasetrain.db.lock", l.Path("/somewhere/releasetrain.db"))
	assert.Equal(t, "/var/lib/lake/_memory_.lock", l.Path(":memory:"))
}

func TestFileLock_Ping(t *testing.T) {
	assert.NoError(t, NewFileLock(t.TempDir()).Ping(context.Background()))
	assert.Error(t, NewFileLock(filepath.Join(t.TempDir(), "missing")).Ping(context.Background()))
}

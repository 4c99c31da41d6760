package connmgr

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{
		DatabasePath: filepath.Join(t.TempDir(), "orders.db"),
	}, nil)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManager_StartsNotInitialized(t *testing.T) {
	m := newTestManager(t)

	st, err := m.Status()
	assert.Equal(t, StatusNotInitialized, st)
	assert.NoError(t, err)
}

func TestManager_GetConnects(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h.Rel)
	require.NotNil(t, h.Cache)
	assert.Equal(t, StatusConnected, h.Status)

	st, _ := m.Status()
	assert.Equal(t, StatusConnected, st)
}

func TestManager_MissingConfigFailsClosed(t *testing.T) {
	m := NewManager(Config{}, nil)

	_, err := m.Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	// Every dependent call keeps failing with the configuration error
	_, err = m.Get(context.Background())
	assert.True(t, IsConfigError(err))

	st, cause := m.Status()
	assert.Equal(t, StatusError, st)
	assert.True(t, IsConfigError(cause))
}

func TestManager_RecoversFromErrorState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-yet-created")
	m := NewManager(Config{DatabasePath: filepath.Join(dir, "orders.db")}, nil)
	t.Cleanup(func() { m.Close() })

	// First attempt fails - parent directory does not exist
	_, err := m.Get(context.Background())
	require.Error(t, err)
	st, cause := m.Status()
	assert.Equal(t, StatusError, st)
	assert.Error(t, cause)

	// Fix the environment; the next Get must transparently retry
	require.NoError(t, os.MkdirAll(dir, 0o755))
	h, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, h.Status)
}

func TestManager_ConcurrentGet(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Get(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, h.Rel)
		}()
	}
	wg.Wait()
}

func TestManager_CloseResetsState(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())

	st, _ := m.Status()
	assert.Equal(t, StatusNotInitialized, st)

	// Reusable after Close
	h, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, h.Status)
}

func TestManager_CacheDisabled(t *testing.T) {
	m := NewManager(Config{
		DatabasePath:  filepath.Join(t.TempDir(), "orders.db"),
		CacheDisabled: true,
	}, nil)
	t.Cleanup(func() { m.Close() })

	h, err := m.Get(context.Background())
	require.NoError(t, err)

	h.Cache.Set("k", nil)
	_, ok := h.Cache.Get("k")
	assert.False(t, ok, "disabled cache must never hit")
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "NOT_INITIALIZED", StatusNotInitialized.String())
	assert.Equal(t, "CONNECTING", StatusConnecting.String())
	assert.Equal(t, "CONNECTED", StatusConnected.String())
	assert.Equal(t, "ERROR", StatusError.String())
}

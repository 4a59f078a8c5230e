package json

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStoreRoundTripThroughFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kbindicator", "groups.json")

	s, err := NewGroupStore(path)
	require.NoError(t, err)

	_, found, err := s.LastGroup(ctx, "core")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetLastGroup(ctx, "core", "Russian"))
	require.NoError(t, s.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"core":"Russian"}`, string(raw))

	reopened, err := NewGroupStore(path)
	require.NoError(t, err)

	name, found, err := reopened.LastGroup(ctx, "core")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Russian", name)
}

func TestSaveLooperSavesOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")

	s, err := NewGroupStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetLastGroup(context.Background(), "core", "German"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.SaveLooper(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("save looper did not return")
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"core":"German"}`, string(raw))
}

func TestNewGroupStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewGroupStore(path)
	assert.Error(t, err)
}

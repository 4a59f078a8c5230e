package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStore(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()

	_, found, err := s.LastGroup(ctx, "core")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetLastGroup(ctx, "core", "English (US)"))
	require.NoError(t, s.SetLastGroup(ctx, "core", "Russian"))
	require.NoError(t, s.SetLastGroup(ctx, "other", "German"))

	name, found, err := s.LastGroup(ctx, "core")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Russian", name)
}

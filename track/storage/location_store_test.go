package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crisisops/sitrack/internal/util"
	"github.com/crisisops/sitrack/track"
)

func TestLocationStore_CreateAndGet(t *testing.T) {
	conn := newTestDB(t)
	store := NewLocationStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	loc := &track.Location{Name: "Bridge North", Lat: util.Ptr(51.5), Lon: util.Ptr(-0.1)}
	id, err := store.Create(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, id, loc.ID)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bridge North", got.Name)
	require.NotNil(t, got.Lat)
	assert.Equal(t, 51.5, *got.Lat)
	require.NotNil(t, got.Lon)
	assert.Equal(t, -0.1, *got.Lon)

	t.Run("missing id returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("nameless coordinate-less row", func(t *testing.T) {
		id, err := store.Create(ctx, &track.Location{})
		require.NoError(t, err)
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Name)
		assert.Nil(t, got.Lat)
		assert.Nil(t, got.Lon)
	})
}

func TestLocationStore_GetBatch(t *testing.T) {
	conn := newTestDB(t)
	store := NewLocationStore(conn, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	id1, err := store.Create(ctx, &track.Location{Name: "A"})
	require.NoError(t, err)
	id2, err := store.Create(ctx, &track.Location{Name: "B"})
	require.NoError(t, err)

	batch, err := store.GetBatch(ctx, []track.LocationID{id1, id2, 9999})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "A", batch[id1].Name)
	assert.Equal(t, "B", batch[id2].Name)

	batch, err = store.GetBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

package domain

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crisisops/sitrack/track/storage"
)

const fixtureYAML = `
locations:
  - name: HQ
    lat: 51.5
    lon: -0.1
  - name: Bridge North
facilities:
  - name: Shelter 4
    location: HQ
persons:
  - full_name: Dana Reyes
    location: HQ
  - full_name: Sam Okafor
vehicles:
  - call_sign: ALPHA-1
    vehicle_type: ambulance
    location: Bridge North
assets:
  - label: Pump 12
`

func TestLoadFixtures(t *testing.T) {
	store, conn := newTestStore(t)
	locs := storage.NewLocationStore(conn, zaptest.NewLogger(t).Sugar())

	require.NoError(t, LoadFixtures(context.Background(), store, locs, strings.NewReader(fixtureYAML)))

	counts := map[string]int{}
	for _, table := range []string{"locations", "facilities", "persons", "vehicles", "assets", "trackables"} {
		var n int
		require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		counts[table] = n
	}
	assert.Equal(t, 2, counts["locations"])
	assert.Equal(t, 1, counts["facilities"])
	assert.Equal(t, 2, counts["persons"])
	assert.Equal(t, 1, counts["vehicles"])
	assert.Equal(t, 1, counts["assets"])
	// Headers only for ledger-tracked rows: 2 persons + 1 vehicle + 1 asset.
	assert.Equal(t, 4, counts["trackables"])

	p, err := store.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotNil(t, p.Location)
}

func TestLoadFixtures_UnknownLocation(t *testing.T) {
	store, conn := newTestStore(t)
	locs := storage.NewLocationStore(conn, zaptest.NewLogger(t).Sugar())

	bad := `
persons:
  - full_name: Dana Reyes
    location: Nowhere
`
	err := LoadFixtures(context.Background(), store, locs, strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown location")
}

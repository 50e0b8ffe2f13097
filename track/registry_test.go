package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisisops/sitrack/errors"
)

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(TypeInfo{Name: "persons", HasTrackID: true, HasBaseLocation: true}))
	require.NoError(t, reg.Register(TypeInfo{Name: "facilities", HasBaseLocation: true}))

	info, ok := reg.Lookup("persons")
	require.True(t, ok)
	assert.True(t, info.HasTrackID)
	assert.True(t, info.HasBaseLocation)

	_, ok = reg.Lookup("ghosts")
	assert.False(t, ok)
}

func TestRegistryRegister_Rejections(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(TypeInfo{Name: "persons", HasTrackID: true}))

	t.Run("empty name", func(t *testing.T) {
		err := reg.Register(TypeInfo{HasTrackID: true})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("reserved name", func(t *testing.T) {
		err := reg.Register(TypeInfo{Name: SuperEntityType, HasTrackID: true})
		assert.Error(t, err)
	})

	t.Run("no capability", func(t *testing.T) {
		err := reg.Register(TypeInfo{Name: "notes"})
		assert.True(t, errors.IsNotTrackableError(err))
	})

	t.Run("duplicate", func(t *testing.T) {
		err := reg.Register(TypeInfo{Name: "persons", HasTrackID: true})
		assert.Error(t, err)
	})
}

func TestRegistryTypes_Sorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(TypeInfo{Name: "vehicles", HasTrackID: true}))
	require.NoError(t, reg.Register(TypeInfo{Name: "assets", HasTrackID: true}))
	require.NoError(t, reg.Register(TypeInfo{Name: "persons", HasTrackID: true}))

	names := make([]string, 0, 3)
	for _, info := range reg.Types() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"assets", "persons", "vehicles"}, names)
}

func TestInterlockEqual(t *testing.T) {
	a := Interlock{Type: "vehicles", ID: 3}
	assert.True(t, a.Equal(Interlock{Type: "vehicles", ID: 3}))
	assert.False(t, a.Equal(Interlock{Type: "vehicles", ID: 4}))
	assert.False(t, a.Equal(Interlock{Type: "persons", ID: 3}))
}

package markertable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibility_Defaults(t *testing.T) {
	v := NewVisibility(DefaultVisibleGroups)
	assert.Equal(t, []Column{ColType, ColTime, ColMagnitude}, v.VisibleColumns())
	assert.Equal(t, DefaultVisibleGroups, v.VisibleGroups())
	assert.True(t, v.ColumnHidden(ColDistance))
	assert.True(t, v.ColumnHidden(Column(-1)))
}

func TestVisibility_ToggleRoundTrip(t *testing.T) {
	for g := Group(0); int(g) < GroupCount; g++ {
		v := NewVisibility(DefaultVisibleGroups)
		before := v.VisibleColumns()
		v.Toggle(g)
		v.Toggle(g)
		assert.Equal(t, before, v.VisibleColumns(), g.String())
	}
}

func TestVisibility_GroupsSwitchAtomically(t *testing.T) {
	v := NewVisibility(nil)
	assert.Empty(t, v.VisibleColumns())

	assert.True(t, v.SetGroupVisible(GroupLatLon, true))
	assert.False(t, v.ColumnHidden(ColLat))
	assert.False(t, v.ColumnHidden(ColLon))

	assert.True(t, v.SetGroupVisible(GroupStrikeDipRake, true))
	assert.Equal(t, []Column{ColLat, ColLon, ColStrike, ColDip, ColRake}, v.VisibleColumns())

	assert.False(t, v.SetGroupVisible(GroupLatLon, true), "no change")
	assert.False(t, v.SetGroupVisible(Group(42), true))
}

func TestVisibility_DistanceShownCallback(t *testing.T) {
	v := NewVisibility(nil)
	shown := 0
	v.OnDistanceShown(func() { shown++ })

	v.SetGroupVisible(GroupDistance, true)
	v.SetGroupVisible(GroupDistance, true)
	v.SetGroupVisible(GroupDistance, false)
	v.SetGroupVisible(GroupLatLon, true)
	assert.Equal(t, 1, shown)

	assert.True(t, v.Toggle(GroupDistance))
	assert.Equal(t, 2, shown)
}

func TestGroupByName(t *testing.T) {
	cases := map[string]Group{
		"Latitude/Longitude": GroupLatLon,
		"latlon":             GroupLatLon,
		"lon":                GroupLatLon,
		"dip":                GroupStrikeDipRake,
		"Distance":           GroupDistance,
		"M":                  GroupMagnitude,
		"type":               GroupType,
	}
	for name, want := range cases {
		got, ok := GroupByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := GroupByName("velocity")
	assert.False(t, ok)
}

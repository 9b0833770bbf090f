package markertable

import "strings"

// Column is one of the fixed logical fields of the marker table.
type Column int

const (
	ColType Column = iota
	ColTime
	ColLength
	ColMagnitude
	ColLabel
	ColDepth
	ColLat
	ColLon
	ColDistance
	ColStrike
	ColDip
	ColRake
)

// ColumnCount is the number of table columns.
const ColumnCount = 12

var columnHeaders = [ColumnCount]string{
	"T", "Time", "Length", "M", "Label", "Depth [km]",
	"Lat", "Lon", "Dist [km]", "Strike", "Dip", "Rake",
}

// Valid reports whether c is one of the table columns.
func (c Column) Valid() bool {
	return c >= 0 && int(c) < ColumnCount
}

// Header returns the header label shown above the column.
func (c Column) Header() string {
	if !c.Valid() {
		return ""
	}
	return columnHeaders[c]
}

// Editable reports whether cells of the column accept edits at all.
// Whether a particular cell is editable also depends on the record variant,
// see Projection.Flags.
func (c Column) Editable() bool {
	switch c {
	case ColMagnitude, ColLabel, ColDepth, ColLat, ColLon:
		return true
	default:
		return false
	}
}

func (c Column) String() string {
	return c.Header()
}

var columnAliases = map[string]Column{
	"t": ColType, "type": ColType,
	"time":   ColTime,
	"length": ColLength,
	"m":      ColMagnitude, "magnitude": ColMagnitude,
	"label": ColLabel,
	"depth": ColDepth, "depth [km]": ColDepth,
	"lat": ColLat, "latitude": ColLat,
	"lon": ColLon, "longitude": ColLon,
	"dist": ColDistance, "distance": ColDistance, "dist [km]": ColDistance,
	"strike": ColStrike,
	"dip":    ColDip,
	"rake":   ColRake,
}

// ColumnByName resolves a header label or a common alias, case-insensitively.
func ColumnByName(name string) (Column, bool) {
	c, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Group is a set of columns that are shown or hidden together.
type Group int

const (
	GroupType Group = iota
	GroupTime
	GroupLength
	GroupMagnitude
	GroupLabel
	GroupDepth
	GroupLatLon
	GroupDistance
	GroupStrikeDipRake
)

// GroupCount is the number of column groups.
const GroupCount = 9

var groups = [GroupCount]struct {
	label   string
	columns []Column
}{
	{"Type", []Column{ColType}},
	{"Time", []Column{ColTime}},
	{"Length", []Column{ColLength}},
	{"Magnitude", []Column{ColMagnitude}},
	{"Label", []Column{ColLabel}},
	{"Depth [km]", []Column{ColDepth}},
	{"Latitude/Longitude", []Column{ColLat, ColLon}},
	{"Distance [km]", []Column{ColDistance}},
	{"Strike/Dip/Rake", []Column{ColStrike, ColDip, ColRake}},
}

// DefaultVisibleGroups are the groups shown when nothing is configured.
var DefaultVisibleGroups = []Group{GroupType, GroupTime, GroupMagnitude}

// Valid reports whether g is a known group.
func (g Group) Valid() bool {
	return g >= 0 && int(g) < GroupCount
}

// Label returns the menu label of the group.
func (g Group) Label() string {
	if !g.Valid() {
		return ""
	}
	return groups[g].label
}

// Columns returns the physical columns of the group.
func (g Group) Columns() []Column {
	if !g.Valid() {
		return nil
	}
	return append([]Column(nil), groups[g].columns...)
}

func (g Group) String() string {
	return g.Label()
}

// GroupOf returns the group a column belongs to.
func GroupOf(c Column) Group {
	for g := Group(0); int(g) < GroupCount; g++ {
		for _, gc := range groups[g].columns {
			if gc == c {
				return g
			}
		}
	}
	return -1
}

// GroupByName resolves a group by its menu label, or by the name of any of
// its columns.
func GroupByName(name string) (Group, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for g := Group(0); int(g) < GroupCount; g++ {
		if strings.ToLower(groups[g].label) == n {
			return g, true
		}
	}
	switch n {
	case "latlon", "lat/lon":
		return GroupLatLon, true
	case "sdr", "mechanism":
		return GroupStrikeDipRake, true
	}
	if c, ok := ColumnByName(n); ok {
		return GroupOf(c), true
	}
	return -1, false
}

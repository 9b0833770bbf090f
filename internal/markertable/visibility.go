package markertable

// Visibility tracks which columns are hidden. Columns are always switched a
// whole group at a time.
type Visibility struct {
	hidden [ColumnCount]bool

	// onDistanceShown fires when the Distance group goes from hidden to visible.
	onDistanceShown func()
}

// NewVisibility creates a state where exactly the given groups are shown.
func NewVisibility(visible []Group) *Visibility {
	v := &Visibility{}
	for c := range v.hidden {
		v.hidden[c] = true
	}
	for _, g := range visible {
		for _, c := range g.Columns() {
			v.hidden[c] = false
		}
	}
	return v
}

// OnDistanceShown sets the callback fired when Distance becomes visible.
func (v *Visibility) OnDistanceShown(fn func()) {
	v.onDistanceShown = fn
}

// ColumnHidden reports whether col is hidden.
func (v *Visibility) ColumnHidden(col Column) bool {
	if !col.Valid() {
		return true
	}
	return v.hidden[col]
}

// GroupVisible reports whether the columns of g are shown.
func (v *Visibility) GroupVisible(g Group) bool {
	cols := g.Columns()
	if len(cols) == 0 {
		return false
	}
	return !v.hidden[cols[0]]
}

// SetGroupVisible shows or hides all columns of g. It reports whether
// anything changed.
func (v *Visibility) SetGroupVisible(g Group, visible bool) bool {
	if !g.Valid() || v.GroupVisible(g) == visible {
		return false
	}
	for _, c := range g.Columns() {
		v.hidden[c] = !visible
	}
	if g == GroupDistance && visible && v.onDistanceShown != nil {
		v.onDistanceShown()
	}
	return true
}

// Toggle flips the visibility of g and returns the new state.
func (v *Visibility) Toggle(g Group) bool {
	visible := !v.GroupVisible(g)
	v.SetGroupVisible(g, visible)
	return visible
}

// VisibleColumns returns the shown columns in table order.
func (v *Visibility) VisibleColumns() []Column {
	var out []Column
	for c := Column(0); int(c) < ColumnCount; c++ {
		if !v.hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// VisibleGroups returns the shown groups in menu order.
func (v *Visibility) VisibleGroups() []Group {
	var out []Group
	for g := Group(0); int(g) < GroupCount; g++ {
		if v.GroupVisible(g) {
			out = append(out, g)
		}
	}
	return out
}

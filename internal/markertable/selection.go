package markertable

import "sort"

// SelectionModel holds the table's own selection: whole display rows, a
// current row and the row the view was last scrolled to. Every mutation is
// reported to the change callback; layout changes remap rows silently.
type SelectionModel struct {
	rows       map[int]struct{}
	current    int
	scrolledTo int
	onChange   func()
}

// NewSelectionModel creates an empty selection following proxy's layout.
func NewSelectionModel(proxy *Proxy) *SelectionModel {
	m := &SelectionModel{
		rows:       make(map[int]struct{}),
		current:    -1,
		scrolledTo: -1,
	}
	if proxy != nil {
		proxy.Subscribe(m)
	}
	return m
}

// OnChange sets the callback invoked after every selection mutation.
func (m *SelectionModel) OnChange(fn func()) {
	m.onChange = fn
}

func (m *SelectionModel) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Clear deselects all rows.
func (m *SelectionModel) Clear() {
	if len(m.rows) == 0 {
		return
	}
	m.rows = make(map[int]struct{})
	m.changed()
}

// SelectRow adds a full row to the selection.
func (m *SelectionModel) SelectRow(row int) {
	if row < 0 {
		return
	}
	if _, ok := m.rows[row]; ok {
		return
	}
	m.rows[row] = struct{}{}
	m.changed()
}

// Select replaces the selection with rows, reporting a single change.
// Negative rows are skipped; the first valid row becomes current.
func (m *SelectionModel) Select(rows ...int) {
	next := make(map[int]struct{}, len(rows))
	first := -1
	for _, r := range rows {
		if r < 0 {
			continue
		}
		if first < 0 {
			first = r
		}
		next[r] = struct{}{}
	}
	m.rows = next
	if first >= 0 {
		m.current = first
	}
	m.changed()
}

// SetCurrent moves the current row.
func (m *SelectionModel) SetCurrent(row int) {
	m.current = row
}

// Current returns the current row, or -1.
func (m *SelectionModel) Current() int { return m.current }

// ScrollTo records the row the view should bring into sight.
func (m *SelectionModel) ScrollTo(row int) {
	m.scrolledTo = row
}

// ScrolledTo returns the last scroll target, or -1.
func (m *SelectionModel) ScrolledTo() int { return m.scrolledTo }

// IsSelected reports whether row is selected.
func (m *SelectionModel) IsSelected(row int) bool {
	_, ok := m.rows[row]
	return ok
}

// SelectedRows returns the selected rows in ascending display order.
func (m *SelectionModel) SelectedRows() []int {
	out := make([]int, 0, len(m.rows))
	for r := range m.rows {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of selected rows.
func (m *SelectionModel) Len() int { return len(m.rows) }

// LayoutChanged implements LayoutListener.
func (m *SelectionModel) LayoutChanged(remap []int) {
	move := func(r int) int {
		if r < 0 || r >= len(remap) {
			return -1
		}
		return remap[r]
	}

	next := make(map[int]struct{}, len(m.rows))
	for r := range m.rows {
		if nr := move(r); nr >= 0 {
			next[nr] = struct{}{}
		}
	}
	m.rows = next
	m.current = move(m.current)
	m.scrolledTo = move(m.scrolledTo)
}

package markertable

import (
	"sort"

	"github.com/seismotools/markereditor/pkg/core"
)

// FilterFunc decides whether the record in a domain row is shown.
type FilterFunc func(row int, rec core.Record) bool

// Proxy keeps a display order over a Projection. The order is a stable sort
// on one column, recomputed whenever the sort key, the filter or the
// underlying rows change. Rows rejected by the filter have no display index.
type Proxy struct {
	source     *Projection
	sortColumn Column
	descending bool
	filter     FilterFunc

	toDomain  []int // display -> domain
	toDisplay []int // domain -> display, -1 when filtered out

	listeners []LayoutListener
}

// NewProxy creates a proxy sorted ascending by Time and subscribes it to
// source.
func NewProxy(source *Projection) *Proxy {
	p := &Proxy{source: source, sortColumn: ColTime}
	source.Subscribe(p)
	p.rebuild()
	return p
}

// Subscribe registers l for layout changes.
func (p *Proxy) Subscribe(l LayoutListener) {
	p.listeners = append(p.listeners, l)
}

// Sort sets the sort column and direction and re-applies the order.
func (p *Proxy) Sort(col Column, descending bool) {
	if !col.Valid() {
		return
	}
	p.sortColumn = col
	p.descending = descending
	p.relayout(identityShift)
}

// SortOrder returns the current sort column and direction.
func (p *Proxy) SortOrder() (Column, bool) {
	return p.sortColumn, p.descending
}

// SetFilter installs a row predicate; nil shows every row.
func (p *Proxy) SetFilter(f FilterFunc) {
	p.filter = f
	p.relayout(identityShift)
}

// RowCount returns the number of displayed rows.
func (p *Proxy) RowCount() int { return len(p.toDomain) }

// ToDomain maps a display row to its projection row.
func (p *Proxy) ToDomain(display int) (int, bool) {
	if display < 0 || display >= len(p.toDomain) {
		return -1, false
	}
	return p.toDomain[display], true
}

// ToDisplay maps a projection row to its display row. ok is false for rows
// out of range or hidden by the filter.
func (p *Proxy) ToDisplay(domain int) (int, bool) {
	if domain < 0 || domain >= len(p.toDisplay) {
		return -1, false
	}
	d := p.toDisplay[domain]
	return d, d >= 0
}

// Read returns the display value of a cell in display coordinates.
func (p *Proxy) Read(display int, col Column) string {
	row, ok := p.ToDomain(display)
	if !ok {
		return ""
	}
	return p.source.Read(row, col)
}

// Write edits a cell in display coordinates.
func (p *Proxy) Write(display int, col Column, value string) bool {
	row, ok := p.ToDomain(display)
	if !ok {
		return false
	}
	return p.source.Write(row, col, value)
}

// Flags returns the flags of a cell in display coordinates.
func (p *Proxy) Flags(display int, col Column) Flags {
	row, ok := p.ToDomain(display)
	if !ok {
		return 0
	}
	return p.source.Flags(row, col)
}

// RowsInserted implements Listener.
func (p *Proxy) RowsInserted(start, stop int) {
	n := stop - start
	p.relayout(func(d int) int {
		if d >= start {
			return d + n
		}
		return d
	})
}

// RowsRemoved implements Listener.
func (p *Proxy) RowsRemoved(start, stop int) {
	n := stop - start
	p.relayout(func(d int) int {
		switch {
		case d >= stop:
			return d - n
		case d >= start:
			return -1
		}
		return d
	})
}

// DataChanged implements Listener. Sorting is dynamic, so any change may move rows.
func (p *Proxy) DataChanged(topLeft, bottomRight Cell) {
	p.relayout(identityShift)
}

// Reset implements Listener.
func (p *Proxy) Reset() {
	p.relayout(identityShift)
}

func identityShift(d int) int { return d }

// relayout rebuilds the order and tells listeners where each old display row
// went. shift translates old domain rows into the new domain numbering.
func (p *Proxy) relayout(shift func(int) int) {
	old := p.toDomain
	p.rebuild()

	if len(p.listeners) == 0 {
		return
	}
	remap := make([]int, len(old))
	for i, d := range old {
		remap[i] = -1
		if nd := shift(d); nd >= 0 {
			if disp, ok := p.ToDisplay(nd); ok {
				remap[i] = disp
			}
		}
	}
	for _, l := range p.listeners {
		l.LayoutChanged(remap)
	}
}

func (p *Proxy) rebuild() {
	n := p.source.RowCount()
	order := make([]int, 0, n)
	for row := 0; row < n; row++ {
		if p.filter != nil {
			rec, ok := p.source.Record(row)
			if !ok || !p.filter(row, rec) {
				continue
			}
		}
		order = append(order, row)
	}

	keys := make(map[int]SortKey, len(order))
	for _, row := range order {
		keys[row] = p.source.SortKey(row, p.sortColumn)
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := keys[order[i]], keys[order[j]]
		if p.descending {
			return b.Less(a)
		}
		return a.Less(b)
	})

	toDisplay := make([]int, n)
	for i := range toDisplay {
		toDisplay[i] = -1
	}
	for disp, row := range order {
		toDisplay[row] = disp
	}
	p.toDomain = order
	p.toDisplay = toDisplay
}

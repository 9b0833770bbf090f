package markertable

import (
	"errors"
	"fmt"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

// ErrSelectionCardinality is returned by commands that need exactly one
// selected row.
var ErrSelectionCardinality = errors.New("exactly one row must be selected")

// RefreshMode selects how bound views are told about a distance recompute.
type RefreshMode string

const (
	// RefreshReset announces the Distance column and then resets the table.
	RefreshReset RefreshMode = "reset"
	// RefreshColumn only announces the Distance column.
	RefreshColumn RefreshMode = "column"
)

// ParseRefreshMode parses a configured refresh mode. Empty means reset.
func ParseRefreshMode(s string) (RefreshMode, error) {
	switch RefreshMode(s) {
	case "", RefreshReset:
		return RefreshReset, nil
	case RefreshColumn:
		return RefreshColumn, nil
	}
	return "", fmt.Errorf("unknown distance refresh mode: %q", s)
}

// Navigator moves the viewer to its current selection.
type Navigator interface {
	GoToSelection()
}

// Options configure an Editor.
type Options struct {
	VisibleGroups []Group
	SortColumn    Column
	Descending    bool
	Refresh       RefreshMode
	Logger        Logger
}

// DefaultOptions returns the initial table layout: Type, Time and Magnitude
// shown, sorted ascending by Time.
func DefaultOptions() Options {
	return Options{
		VisibleGroups: DefaultVisibleGroups,
		SortColumn:    ColTime,
		Refresh:       RefreshReset,
	}
}

// Details is the content of the detail view for one record.
type Details struct {
	Label          string
	Tmin, Tmax     time.Time
	Event          bool
	Magnitude      *float64
	Depth          *float64
	AssignedPhases []*core.PhaseRecord
}

// Editor is the marker table bound to a record store. The store reports
// membership and selection changes through RecordsAdded, RecordsRemoved and
// SelectionChanged; everything runs on the caller's goroutine.
type Editor struct {
	store      RecordStore
	projection *Projection
	proxy      *Proxy
	selection  *SelectionModel
	sync       *Synchronizer
	distances  *DistanceCache
	columns    *Visibility
	refresh    RefreshMode
	navigator  Navigator
	log        Logger

	// last selection reported by the store, in domain rows
	domainSelection   []int
	distanceRefreshed bool
}

// NewEditor wires a table over store. The projection starts empty; existing
// records must be announced with RecordsAdded.
func NewEditor(store RecordStore, opts Options) (*Editor, error) {
	refresh, err := ParseRefreshMode(string(opts.Refresh))
	if err != nil {
		return nil, err
	}
	groups := opts.VisibleGroups
	if groups == nil {
		groups = DefaultVisibleGroups
	}

	e := &Editor{
		store:   store,
		refresh: refresh,
		log:     defaultLogger(opts.Logger),
	}
	e.columns = NewVisibility(groups)
	e.distances, err = NewDistanceCache(store, e.distanceVisible, e.log)
	if err != nil {
		return nil, err
	}

	e.projection = NewProjection(store)
	e.projection.distances = e.distances
	e.projection.columns = e.columns

	e.proxy = NewProxy(e.projection)
	if opts.SortColumn.Valid() {
		e.proxy.Sort(opts.SortColumn, opts.Descending)
	}
	e.selection = NewSelectionModel(e.proxy)
	e.sync = NewSynchronizer(store, e.proxy, e.selection, e.log)

	e.columns.OnDistanceShown(e.distanceShown)
	return e, nil
}

// SetNavigator sets the target of Activate's go-to-selection request.
func (e *Editor) SetNavigator(n Navigator) {
	e.navigator = n
}

// Projection returns the unsorted table model.
func (e *Editor) Projection() *Projection { return e.projection }

// Proxy returns the sorted view of the table.
func (e *Editor) Proxy() *Proxy { return e.proxy }

// Selection returns the table's own selection.
func (e *Editor) Selection() *SelectionModel { return e.selection }

// Distances returns the distance cache.
func (e *Editor) Distances() *DistanceCache { return e.distances }

// Columns returns the column visibility state.
func (e *Editor) Columns() *Visibility { return e.columns }

// RecordsAdded is called by the store after records [start, stop) were inserted.
func (e *Editor) RecordsAdded(start, stop int) {
	if err := e.projection.InsertRows(start, stop); err != nil {
		e.log.Error("ignoring records added", "error", err)
		return
	}
	for i, row := range e.domainSelection {
		if row >= start {
			e.domainSelection[i] = row + stop - start
		}
	}
}

// RecordsRemoved is called by the store after records [start, stop) were removed.
func (e *Editor) RecordsRemoved(start, stop int) {
	if err := e.projection.RemoveRows(start, stop); err != nil {
		e.log.Error("ignoring records removed", "error", err)
		return
	}
	kept := e.domainSelection[:0]
	for _, row := range e.domainSelection {
		switch {
		case row < start:
			kept = append(kept, row)
		case row >= stop:
			kept = append(kept, row-(stop-start))
		}
	}
	e.domainSelection = kept
	e.distances.Purge()
}

// SelectionChanged is called by the store with its new selection in domain
// rows. The distance cache sees every update; the table selection follows
// unless the update is the echo of the table's own push.
func (e *Editor) SelectionChanged(indices []int) {
	e.domainSelection = append(e.domainSelection[:0], indices...)
	e.updateDistances(indices)
	e.sync.ApplyDomainSelection(indices)
}

// ActiveReferenceChanged is called by the store when its active reference
// changes. The last selection is replayed so distances follow the new
// reference.
func (e *Editor) ActiveReferenceChanged() {
	e.updateDistances(e.domainSelection)
}

func (e *Editor) distanceVisible() bool {
	return !e.columns.ColumnHidden(ColDistance)
}

// distanceShown replays the store's selection rather than the table's, which
// misses rows hidden by a filter.
func (e *Editor) distanceShown() {
	e.distanceRefreshed = e.updateDistances(e.domainSelection)
}

func (e *Editor) updateDistances(indices []int) bool {
	if !e.distances.SelectionChanged(indices) {
		return false
	}
	e.projection.ColumnChanged(ColDistance)
	if e.refresh == RefreshReset {
		e.projection.Reset()
	}
	return true
}

// RowCount returns the number of displayed rows.
func (e *Editor) RowCount() int { return e.proxy.RowCount() }

// Read returns a cell in display coordinates.
func (e *Editor) Read(row int, col Column) string { return e.proxy.Read(row, col) }

// Write edits a cell in display coordinates.
func (e *Editor) Write(row int, col Column, value string) bool {
	ok := e.proxy.Write(row, col, value)
	if !ok {
		e.log.Debug("edit rejected", "row", row, "column", col.String(), "value", value)
	}
	return ok
}

// Flags returns the flags of a cell in display coordinates.
func (e *Editor) Flags(row int, col Column) Flags { return e.proxy.Flags(row, col) }

// Record returns the record shown in display row.
func (e *Editor) Record(row int) (core.Record, bool) {
	idx, ok := e.proxy.ToDomain(row)
	if !ok {
		return nil, false
	}
	return e.projection.Record(idx)
}

// Sort orders the table by col.
func (e *Editor) Sort(col Column, descending bool) {
	e.proxy.Sort(col, descending)
}

// SetFilter restricts the displayed rows; nil shows all.
func (e *Editor) SetFilter(f FilterFunc) {
	e.proxy.SetFilter(f)
}

// SetGroupVisible shows or hides a column group.
func (e *Editor) SetGroupVisible(g Group, visible bool) bool {
	e.distanceRefreshed = false
	changed := e.columns.SetGroupVisible(g, visible)
	if changed && g == GroupDistance && !e.distanceRefreshed {
		e.projection.ColumnChanged(ColDistance)
	}
	if changed {
		e.log.Debug("column group toggled", "group", g.String(), "visible", visible)
	}
	return changed
}

// ToggleGroup flips a column group and returns its new visibility.
func (e *Editor) ToggleGroup(g Group) bool {
	visible := !e.columns.GroupVisible(g)
	e.SetGroupVisible(g, visible)
	return visible
}

// VisibleColumns returns the shown columns in table order.
func (e *Editor) VisibleColumns() []Column { return e.columns.VisibleColumns() }

// SelectRows replaces the table selection with the given display rows and
// pushes it to the store.
func (e *Editor) SelectRows(rows ...int) {
	e.selection.Select(rows...)
}

// SelectedRows returns the selected display rows.
func (e *Editor) SelectedRows() []int { return e.selection.SelectedRows() }

// ShowDetails returns the detail view content of the single selected row.
func (e *Editor) ShowDetails() (Details, error) {
	rows := e.selection.SelectedRows()
	if len(rows) != 1 {
		return Details{}, fmt.Errorf("%w: %d selected", ErrSelectionCardinality, len(rows))
	}
	rec, ok := e.Record(rows[0])
	if !ok {
		return Details{}, fmt.Errorf("%w: row %d has no record", ErrSelectionCardinality, rows[0])
	}

	d := Details{Label: rec.Label()}
	d.Tmin, d.Tmax = rec.Span()

	er, isEvent := rec.(*core.EventRecord)
	if !isEvent || er.Event == nil {
		return d, nil
	}
	d.Event = true
	if m, ok := er.Event.PreferredMagnitude(); ok {
		d.Magnitude = core.Float(m)
	}
	if er.Event.Depth != nil {
		d.Depth = core.Float(*er.Event.Depth)
	}

	hash := er.Event.Hash()
	for _, r := range e.store.Records() {
		if p, ok := r.(*core.PhaseRecord); ok && p.EventHash != nil && *p.EventHash == hash {
			d.AssignedPhases = append(d.AssignedPhases, p)
		}
	}
	return d, nil
}

// Activate handles a double click on a cell. Editable columns are left to the
// edit path and return ok=false; other columns open the detail view and move
// the viewer to the selection.
func (e *Editor) Activate(row int, col Column) (details Details, ok bool, err error) {
	if col.Editable() {
		return Details{}, false, nil
	}
	if !e.selection.IsSelected(row) {
		e.selection.Select(row)
	}

	details, err = e.ShowDetails()
	if err != nil {
		return Details{}, false, err
	}
	if e.navigator != nil {
		e.navigator.GoToSelection()
	}
	return details, true, nil
}

package markertable

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

// TimeFormat is the layout of the Time column.
const TimeFormat = "2006-01-02 15:04:05.000"

// ErrInvalidRange is returned for insert/remove notifications whose range
// does not fit the current row count.
var ErrInvalidRange = errors.New("invalid row range")

// Flags describe how a cell may be interacted with.
type Flags uint8

const (
	FlagSelectable Flags = 1 << iota
	FlagEditable
	FlagEnabled
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Projection exposes the record store as rows of ColumnCount fixed columns.
// The row count only changes through InsertRows and RemoveRows.
type Projection struct {
	store     RecordStore
	rows      int
	distances *DistanceCache
	columns   *Visibility
	listeners []Listener
}

// NewProjection creates a projection over store. The store is expected to be
// empty, or to be announced with InsertRows afterwards.
func NewProjection(store RecordStore) *Projection {
	return &Projection{store: store}
}

// Subscribe registers l for change notifications.
func (p *Projection) Subscribe(l Listener) {
	p.listeners = append(p.listeners, l)
}

// RowCount returns the number of rows announced so far.
func (p *Projection) RowCount() int { return p.rows }

// ColumnCount returns the fixed number of columns.
func (p *Projection) ColumnCount() int { return ColumnCount }

// Record returns the record shown in row.
func (p *Projection) Record(row int) (core.Record, bool) {
	if row < 0 || row >= p.rows {
		return nil, false
	}
	recs := p.store.Records()
	if row >= len(recs) {
		return nil, false
	}
	return recs[row], true
}

// InsertRows applies an insertion of records [start, stop).
func (p *Projection) InsertRows(start, stop int) error {
	if start < 0 || stop < start || start > p.rows {
		return fmt.Errorf("%w: insert [%d,%d) into %d rows", ErrInvalidRange, start, stop, p.rows)
	}
	if start == stop {
		return nil
	}
	p.rows += stop - start
	for _, l := range p.listeners {
		l.RowsInserted(start, stop)
	}
	return nil
}

// RemoveRows applies a removal of records [start, stop).
func (p *Projection) RemoveRows(start, stop int) error {
	if start < 0 || stop < start || stop > p.rows {
		return fmt.Errorf("%w: remove [%d,%d) from %d rows", ErrInvalidRange, start, stop, p.rows)
	}
	if start == stop {
		return nil
	}
	p.rows -= stop - start
	for _, l := range p.listeners {
		l.RowsRemoved(start, stop)
	}
	return nil
}

// Reset tells listeners that every cell may have changed.
func (p *Projection) Reset() {
	for _, l := range p.listeners {
		l.Reset()
	}
}

func (p *Projection) dataChanged(topLeft, bottomRight Cell) {
	for _, l := range p.listeners {
		l.DataChanged(topLeft, bottomRight)
	}
}

// ColumnChanged announces that every cell of col may have changed.
func (p *Projection) ColumnChanged(col Column) {
	if p.rows == 0 {
		return
	}
	p.dataChanged(Cell{Row: 0, Col: col}, Cell{Row: p.rows - 1, Col: col})
}

// Flags returns the interaction flags of a cell.
func (p *Projection) Flags(row int, col Column) Flags {
	base := FlagSelectable | FlagEnabled
	rec, ok := p.Record(row)
	if !ok || !col.Editable() {
		return base
	}
	if _, isEvent := rec.(*core.EventRecord); isEvent || col == ColLabel {
		return base | FlagEditable
	}
	return base
}

// Read returns the display value of a cell. Unset values read as "".
func (p *Projection) Read(row int, col Column) string {
	rec, ok := p.Record(row)
	if !ok || !col.Valid() {
		return ""
	}

	switch col {
	case ColType:
		switch rec.(type) {
		case *core.EventRecord:
			return "E"
		case *core.PhaseRecord:
			return "P"
		}
		return ""
	case ColTime:
		tmin, _ := rec.Span()
		return formatTime(tmin)
	case ColLabel:
		return rec.Label()
	}

	switch r := rec.(type) {
	case *core.PhaseRecord:
		if col == ColLength {
			return formatFloat(r.Tmax.Sub(r.Tmin).Seconds(), 2)
		}
		return ""
	case *core.EventRecord:
		return p.readEvent(r, col)
	}
	return ""
}

// columnPrecision is the number of decimals shown for numeric event columns.
var columnPrecision = map[Column]int{
	ColMagnitude: 1,
	ColDepth:     1,
	ColLat:       2,
	ColLon:       2,
	ColDistance:  1,
	ColStrike:    2,
	ColDip:       2,
	ColRake:      2,
}

func (p *Projection) readEvent(r *core.EventRecord, col Column) string {
	v, ok := p.eventValue(r, col)
	if !ok {
		return ""
	}
	return formatFloat(v, columnPrecision[col])
}

// eventValue returns the unformatted value of a numeric event column.
// Depth is converted to km.
func (p *Projection) eventValue(r *core.EventRecord, col Column) (float64, bool) {
	e := r.Event
	if e == nil {
		return 0, false
	}
	mt := e.MomentTensor

	switch col {
	case ColMagnitude:
		return e.PreferredMagnitude()
	case ColDepth:
		if e.Depth != nil {
			return *e.Depth / 1000, true
		}
	case ColLat:
		if e.Lat != nil {
			return *e.Lat, true
		}
	case ColLon:
		if e.Lon != nil {
			return *e.Lon, true
		}
	case ColStrike:
		if mt != nil {
			return mt.Strike1, true
		}
	case ColDip:
		if mt != nil {
			return mt.Dip1, true
		}
	case ColRake:
		if mt != nil {
			return mt.Rake1, true
		}
	case ColDistance:
		return p.distance(r.ID())
	}
	return 0, false
}

func (p *Projection) distance(id core.RecordID) (float64, bool) {
	if p.distances == nil {
		return 0, false
	}
	if p.columns != nil && p.columns.ColumnHidden(ColDistance) {
		return 0, false
	}
	return p.distances.Distance(id)
}

// Write edits a cell. It reports false, leaving the record unchanged, when
// the column is read-only, the record variant does not carry the field, or
// the value does not parse.
func (p *Projection) Write(row int, col Column, value string) bool {
	rec, ok := p.Record(row)
	if !ok || !col.Editable() {
		return false
	}

	var changed bool
	if col == ColLabel {
		changed = writeLabel(rec, value)
	} else {
		changed = writeEventField(rec, col, value)
	}
	if !changed {
		return false
	}

	if (col == ColLat || col == ColLon) && p.distances != nil {
		p.distances.MarkStale()
	}
	cell := Cell{Row: row, Col: col}
	p.dataChanged(cell, cell)
	return true
}

func writeLabel(rec core.Record, value string) bool {
	if value == "" {
		return false
	}
	switch r := rec.(type) {
	case *core.EventRecord:
		if r.Event == nil {
			return false
		}
		r.Event.Name = value
		return true
	case *core.PhaseRecord:
		r.PhaseName = value
		return true
	}
	return false
}

// writeEventField sets a numeric event field. Magnitude goes to the moment
// tensor when one is attached; a tensor is never created here.
func writeEventField(rec core.Record, col Column, value string) bool {
	r, ok := rec.(*core.EventRecord)
	if !ok || r.Event == nil {
		return false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}

	e := r.Event
	switch col {
	case ColMagnitude:
		if e.MomentTensor != nil {
			e.MomentTensor.Magnitude = v
		} else {
			e.Magnitude = core.Float(v)
		}
	case ColLat:
		e.Lat = core.Float(v)
	case ColLon:
		e.Lon = core.Float(v)
	case ColDepth:
		e.Depth = core.Float(v * 1000)
	default:
		return false
	}
	return true
}

// SortKey is the comparable value of a cell. Blank cells sort first.
type SortKey struct {
	Blank   bool
	Numeric bool
	Num     float64
	Str     string
}

// Less orders keys: blanks, then numbers, then strings.
func (k SortKey) Less(o SortKey) bool {
	if k.Blank != o.Blank {
		return k.Blank
	}
	if k.Numeric != o.Numeric {
		return k.Numeric
	}
	if k.Numeric {
		return k.Num < o.Num
	}
	return k.Str < o.Str
}

// SortKey returns the sort value of a cell. Numeric columns compare by value
// rather than by their formatted text.
func (p *Projection) SortKey(row int, col Column) SortKey {
	rec, ok := p.Record(row)
	if !ok {
		return SortKey{Blank: true}
	}
	switch col {
	case ColTime:
		tmin, _ := rec.Span()
		return numKey(float64(tmin.UnixNano()))
	case ColLength:
		if r, ok := rec.(*core.PhaseRecord); ok {
			return numKey(r.Tmax.Sub(r.Tmin).Seconds())
		}
		return SortKey{Blank: true}
	case ColType, ColLabel:
		s := p.Read(row, col)
		return SortKey{Blank: s == "", Str: s}
	}

	if r, ok := rec.(*core.EventRecord); ok {
		if v, ok := p.eventValue(r, col); ok {
			return numKey(v)
		}
	}
	return SortKey{Blank: true}
}

func numKey(v float64) SortKey {
	return SortKey{Numeric: true, Num: v}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

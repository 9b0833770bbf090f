// Package viewer is the record store a marker table binds to. It owns the
// ordered marker list, the selection, the active reference event and the
// visible time range, and tells attached listeners about changes.
package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seismotools/markereditor/internal/storage"
	"github.com/seismotools/markereditor/pkg/core"
)

var (
	// ErrRange is returned for an index or range outside the record list.
	ErrRange = errors.New("record index out of range")
	// ErrNotEvent is returned when an event marker is required.
	ErrNotEvent = errors.New("record is not an event marker")
	// ErrTimeRange is returned for an empty or inverted time range.
	ErrTimeRange = errors.New("invalid time range")
)

// Listener receives record store notifications. Ranges are half-open.
// Notifications are delivered synchronously, after the store lock has been
// released, so listeners may call back into the viewer.
type Listener interface {
	RecordsAdded(start, stop int)
	RecordsRemoved(start, stop int)
	SelectionChanged(indices []int)
}

// ActiveReferenceListener is implemented by listeners that follow the active
// reference.
type ActiveReferenceListener interface {
	ActiveReferenceChanged()
}

func notifyActive(listeners []Listener) {
	for _, l := range listeners {
		if al, ok := l.(ActiveReferenceListener); ok {
			al.ActiveReferenceChanged()
		}
	}
}

// Viewer is an in-memory record store.
type Viewer struct {
	mu        sync.Mutex
	records   []core.Record // replaced, never mutated in place
	selected  map[core.RecordID]struct{}
	active    core.RecordID
	idCounter core.RecordID
	tmin      time.Time
	tmax      time.Time
	listeners []Listener

	stations storage.Backend
	log      *slog.Logger
}

// New creates a viewer. stations may be nil when no station inventory is
// needed.
func New(stations storage.Backend, log *slog.Logger) *Viewer {
	if log == nil {
		log = slog.Default()
	}
	return &Viewer{
		selected: make(map[core.RecordID]struct{}),
		stations: stations,
		log:      log,
	}
}

// Attach registers l and announces the records already present with a
// single RecordsAdded, followed by the current selection if there is one.
func (v *Viewer) Attach(l Listener) {
	v.mu.Lock()
	v.listeners = append(v.listeners, l)
	n := len(v.records)
	sel := v.selectedIndicesLocked()
	v.mu.Unlock()

	if n > 0 {
		l.RecordsAdded(0, n)
	}
	if len(sel) > 0 {
		l.SelectionChanged(sel)
	}
}

// Detach removes l from the listeners.
func (v *Viewer) Detach(l Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, x := range v.listeners {
		if x == l {
			v.listeners = append(v.listeners[:i:i], v.listeners[i+1:]...)
			return
		}
	}
}

func (v *Viewer) snapshotListeners() []Listener {
	return append([]Listener(nil), v.listeners...)
}

// Records returns the current record list. The slice must not be modified;
// it stays valid after later inserts and removals.
func (v *Viewer) Records() []core.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.records
}

// Len returns the number of records.
func (v *Viewer) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.records)
}

// AddRecords appends records and returns their range.
func (v *Viewer) AddRecords(recs ...core.Record) (start, stop int) {
	v.mu.Lock()
	at := len(v.records)
	v.mu.Unlock()
	start, stop, _ = v.InsertRecords(at, recs...)
	return start, stop
}

// InsertRecords inserts records before index i and assigns them fresh IDs.
func (v *Viewer) InsertRecords(i int, recs ...core.Record) (start, stop int, err error) {
	v.mu.Lock()
	if i < 0 || i > len(v.records) {
		v.mu.Unlock()
		return 0, 0, fmt.Errorf("%w: insert at %d of %d", ErrRange, i, len(v.records))
	}
	if len(recs) == 0 {
		v.mu.Unlock()
		return i, i, nil
	}

	for _, r := range recs {
		v.idCounter++
		r.SetID(v.idCounter)
	}
	next := make([]core.Record, 0, len(v.records)+len(recs))
	next = append(next, v.records[:i]...)
	next = append(next, recs...)
	next = append(next, v.records[i:]...)
	v.records = next
	listeners := v.snapshotListeners()
	v.mu.Unlock()

	v.log.Debug("Records added", "start", i, "stop", i+len(recs))
	for _, l := range listeners {
		l.RecordsAdded(i, i+len(recs))
	}
	return i, i + len(recs), nil
}

// RemoveRecords removes the records in [start, stop). Removed records leave
// the selection; when that changes it, listeners get a SelectionChanged
// after the RecordsRemoved.
func (v *Viewer) RemoveRecords(start, stop int) error {
	v.mu.Lock()
	if start < 0 || stop > len(v.records) || start >= stop {
		n := len(v.records)
		v.mu.Unlock()
		return fmt.Errorf("%w: remove [%d,%d) of %d", ErrRange, start, stop, n)
	}

	selectionChanged, activeCleared := false, false
	for _, r := range v.records[start:stop] {
		if _, ok := v.selected[r.ID()]; ok {
			delete(v.selected, r.ID())
			selectionChanged = true
		}
		if r.ID() == v.active {
			v.active = 0
			activeCleared = true
		}
	}

	next := make([]core.Record, 0, len(v.records)-(stop-start))
	next = append(next, v.records[:start]...)
	next = append(next, v.records[stop:]...)
	v.records = next
	sel := v.selectedIndicesLocked()
	listeners := v.snapshotListeners()
	v.mu.Unlock()

	v.log.Debug("Records removed", "start", start, "stop", stop)
	for _, l := range listeners {
		l.RecordsRemoved(start, stop)
	}
	if selectionChanged {
		for _, l := range listeners {
			l.SelectionChanged(sel)
		}
	}
	if activeCleared {
		notifyActive(listeners)
	}
	return nil
}

// SetSelection replaces the selection. Out of range indices are dropped.
// All listeners are notified, including the one that made the call.
func (v *Viewer) SetSelection(indices []int) {
	v.mu.Lock()
	v.selected = make(map[core.RecordID]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(v.records) {
			v.selected[v.records[i].ID()] = struct{}{}
		}
	}
	sel := v.selectedIndicesLocked()
	listeners := v.snapshotListeners()
	v.mu.Unlock()

	for _, l := range listeners {
		l.SelectionChanged(sel)
	}
}

// SelectedIndices returns the selected record indices in ascending order.
func (v *Viewer) SelectedIndices() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedIndicesLocked()
}

func (v *Viewer) selectedIndicesLocked() []int {
	out := make([]int, 0, len(v.selected))
	for i, r := range v.records {
		if _, ok := v.selected[r.ID()]; ok {
			out = append(out, i)
		}
	}
	return out
}

// SelectedRecords returns the selected records in list order.
func (v *Viewer) SelectedRecords() []core.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.Record, 0, len(v.selected))
	for _, r := range v.records {
		if _, ok := v.selected[r.ID()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// SetActiveReference makes the event marker at index i the active reference.
// Listeners following the active reference are told when it changes.
func (v *Viewer) SetActiveReference(i int) error {
	v.mu.Lock()
	if i < 0 || i >= len(v.records) {
		n := len(v.records)
		v.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrRange, i, n)
	}
	if _, ok := v.records[i].(*core.EventRecord); !ok {
		v.mu.Unlock()
		return ErrNotEvent
	}
	id := v.records[i].ID()
	changed := id != v.active
	v.active = id
	listeners := v.snapshotListeners()
	v.mu.Unlock()

	if changed {
		v.log.Debug("Active reference changed", "record", id)
		notifyActive(listeners)
	}
	return nil
}

// ActiveReference returns the active reference event marker, if any.
func (v *Viewer) ActiveReference() (core.Record, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == 0 {
		return nil, false
	}
	for _, r := range v.records {
		if r.ID() == v.active {
			return r, true
		}
	}
	return nil, false
}

// TimeRange returns the visible time range.
func (v *Viewer) TimeRange() (tmin, tmax time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tmin, v.tmax
}

// SetTimeRange sets the visible time range.
func (v *Viewer) SetTimeRange(tmin, tmax time.Time) error {
	if !tmax.After(tmin) {
		return fmt.Errorf("%w: %s - %s", ErrTimeRange, tmin.Format(time.RFC3339), tmax.Format(time.RFC3339))
	}
	v.mu.Lock()
	v.tmin, v.tmax = tmin, tmax
	v.mu.Unlock()
	return nil
}

// GoToSelection moves the time range to span the selected records with a
// margin of a tenth of the span on each side, or five seconds for a single
// instant. It does nothing without a selection.
func (v *Viewer) GoToSelection() {
	recs := v.SelectedRecords()
	if len(recs) == 0 {
		return
	}

	tmin, tmax := recs[0].Span()
	for _, r := range recs[1:] {
		a, b := r.Span()
		if a.Before(tmin) {
			tmin = a
		}
		if b.After(tmax) {
			tmax = b
		}
	}

	pad := tmax.Sub(tmin) / 10
	if pad <= 0 {
		pad = 5 * time.Second
	}
	_ = v.SetTimeRange(tmin.Add(-pad), tmax.Add(pad))
	v.log.Debug("Moved to selection", "tmin", tmin, "tmax", tmax)
}

// HasStation reports whether the station inventory knows the NSL code.
func (v *Viewer) HasStation(nsl string) bool {
	if v.stations == nil {
		return false
	}
	ok, err := v.stations.HasStation(nsl)
	if err != nil {
		v.log.Warn("Station lookup failed", "nsl", nsl, "err", err)
		return false
	}
	return ok
}

// AddStations adds stations to the inventory and returns how many were new.
func (v *Viewer) AddStations(stations ...core.Station) (int, error) {
	if v.stations == nil {
		return 0, errors.New("no station inventory configured")
	}
	n, err := v.stations.AddStations(stations...)
	if err != nil {
		return 0, fmt.Errorf("failed to add stations: %w", err)
	}
	v.log.Info("Stations added", "new", n, "offered", len(stations))
	return n, nil
}

// Stations lists the station inventory ordered by NSL code.
func (v *Viewer) Stations() ([]core.Station, error) {
	if v.stations == nil {
		return nil, nil
	}
	return v.stations.Stations()
}

// Downloads lists the recorded downloads, oldest first.
func (v *Viewer) Downloads() ([]core.DownloadSummary, error) {
	if v.stations == nil {
		return nil, nil
	}
	return v.stations.Downloads()
}

package markertable

import (
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory record store. When editor is set it echoes
// selection pushes back, the way the viewer does.
type fakeStore struct {
	recs      []core.Record
	nextID    core.RecordID
	selection []int
	pushes    int
	active    core.Record
	editor    *Editor
}

func (s *fakeStore) Records() []core.Record { return s.recs }

func (s *fakeStore) ActiveReference() (core.Record, bool) {
	return s.active, s.active != nil
}

// setActive makes rec the active reference and tells the editor, the way
// the viewer does.
func (s *fakeStore) setActive(rec core.Record) {
	s.active = rec
	if s.editor != nil {
		s.editor.ActiveReferenceChanged()
	}
}

func (s *fakeStore) SetSelection(indices []int) {
	s.selection = append([]int(nil), indices...)
	s.pushes++
	if s.editor != nil {
		s.editor.SelectionChanged(s.selection)
	}
}

// insert places recs at index i and returns the half-open range.
func (s *fakeStore) insert(i int, recs ...core.Record) (int, int) {
	for _, r := range recs {
		s.nextID++
		r.SetID(s.nextID)
	}
	tail := append([]core.Record(nil), s.recs[i:]...)
	s.recs = append(append(s.recs[:i], recs...), tail...)
	return i, i + len(recs)
}

func (s *fakeStore) add(recs ...core.Record) (int, int) {
	return s.insert(len(s.recs), recs...)
}

func (s *fakeStore) remove(start, stop int) {
	s.recs = append(s.recs[:start], s.recs[stop:]...)
}

type recorder struct {
	inserted [][2]int
	removed  [][2]int
	changed  [][2]Cell
	resets   int
}

func (r *recorder) RowsInserted(start, stop int) {
	r.inserted = append(r.inserted, [2]int{start, stop})
}
func (r *recorder) RowsRemoved(start, stop int) { r.removed = append(r.removed, [2]int{start, stop}) }
func (r *recorder) DataChanged(tl, br Cell)     { r.changed = append(r.changed, [2]Cell{tl, br}) }
func (r *recorder) Reset()                      { r.resets++ }

type navigator struct{ calls int }

func (n *navigator) GoToSelection() { n.calls++ }

func event(offset time.Duration, name string, lat, lon float64) *core.EventRecord {
	tm := t0.Add(offset)
	return &core.EventRecord{
		Tmin: tm,
		Tmax: tm,
		Event: &core.Event{
			Name: name,
			Time: tm,
			Lat:  core.Float(lat),
			Lon:  core.Float(lon),
		},
	}
}

func phase(offset time.Duration, name string) *core.PhaseRecord {
	tm := t0.Add(offset)
	return &core.PhaseRecord{Tmin: tm, Tmax: tm.Add(1500 * time.Millisecond), PhaseName: name}
}

// newEditor builds an editor over an empty store with the given groups shown.
func newEditor(groups ...Group) (*Editor, *fakeStore) {
	store := &fakeStore{}
	opts := DefaultOptions()
	if len(groups) > 0 {
		opts.VisibleGroups = groups
	}
	e, err := NewEditor(store, opts)
	if err != nil {
		panic(err)
	}
	store.editor = e
	return e, store
}

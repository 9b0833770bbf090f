package viewer

import (
	"testing"
	"time"

	"github.com/seismotools/markereditor/internal/markertable"
	"github.com/seismotools/markereditor/internal/storage/memory"
	"github.com/seismotools/markereditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type notification struct {
	kind  string
	start int
	stop  int
	sel   []int
}

type recorder struct {
	got []notification
	v   *Viewer // when set, reads back during notifications
	n   []int
}

func (r *recorder) RecordsAdded(start, stop int) {
	r.got = append(r.got, notification{kind: "added", start: start, stop: stop})
	if r.v != nil {
		r.n = append(r.n, len(r.v.Records()))
	}
}

func (r *recorder) RecordsRemoved(start, stop int) {
	r.got = append(r.got, notification{kind: "removed", start: start, stop: stop})
}

func (r *recorder) SelectionChanged(indices []int) {
	r.got = append(r.got, notification{kind: "selection", sel: append([]int(nil), indices...)})
}

func (r *recorder) ActiveReferenceChanged() {
	r.got = append(r.got, notification{kind: "active"})
}

func ev(offset time.Duration, name string) *core.EventRecord {
	tm := t0.Add(offset)
	return &core.EventRecord{Tmin: tm, Tmax: tm, Event: &core.Event{Name: name, Time: tm, Lat: core.Float(0), Lon: core.Float(0)}}
}

func ph(offset time.Duration, name string) *core.PhaseRecord {
	tm := t0.Add(offset)
	return &core.PhaseRecord{Tmin: tm, Tmax: tm.Add(2 * time.Second), PhaseName: name}
}

func TestAddRecords_AssignsIDsAndNotifies(t *testing.T) {
	v := New(nil, nil)
	rec := &recorder{v: v}
	v.Attach(rec)

	start, stop := v.AddRecords(ev(0, "A"), ph(time.Second, "P"))
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, stop)
	start, stop = v.AddRecords(ph(2*time.Second, "S"))
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, stop)

	recs := v.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, core.RecordID(1), recs[0].ID())
	assert.Equal(t, core.RecordID(3), recs[2].ID())
	assert.Equal(t, []notification{{kind: "added", start: 0, stop: 2}, {kind: "added", start: 2, stop: 3}}, rec.got)
	assert.Equal(t, []int{2, 3}, rec.n, "listeners can read the new list without deadlock")
}

func TestInsertRecords(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Second, "B"))
	before := v.Records()

	start, stop, err := v.InsertRecords(1, ph(0, "P"))
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, stop)
	assert.Equal(t, "P", v.Records()[1].Label())
	assert.Len(t, before, 2, "earlier views are not modified")

	_, _, err = v.InsertRecords(9, ph(0, "X"))
	assert.ErrorIs(t, err, ErrRange)
}

func TestAttach_AnnouncesExisting(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Second, "B"), ph(0, "P"))
	v.SetSelection([]int{2})

	rec := &recorder{}
	v.Attach(rec)
	assert.Equal(t, []notification{
		{kind: "added", start: 0, stop: 3},
		{kind: "selection", sel: []int{2}},
	}, rec.got)

	v.Detach(rec)
	v.AddRecords(ph(0, "S"))
	assert.Len(t, rec.got, 2)
}

func TestSetSelection(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Second, "B"), ph(0, "P"))
	rec := &recorder{}
	v.Attach(rec)

	v.SetSelection([]int{2, 0, 7, -1, 0})
	assert.Equal(t, []int{0, 2}, v.SelectedIndices())
	assert.Equal(t, []notification{{kind: "selection", sel: []int{0, 2}}}, rec.got)

	sel := v.SelectedRecords()
	require.Len(t, sel, 2)
	assert.Equal(t, "A", sel[0].Label())
	assert.Equal(t, "P", sel[1].Label())
}

func TestSelectionFollowsRecords(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Second, "B"), ph(0, "P"))
	v.SetSelection([]int{1})

	_, _, err := v.InsertRecords(0, ph(0, "new"))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, v.SelectedIndices())
}

func TestRemoveRecords(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Second, "B"), ph(0, "P"), ph(0, "S"))
	v.SetSelection([]int{1, 3})
	rec := &recorder{}
	v.Attach(rec)
	rec.got = nil

	require.NoError(t, v.RemoveRecords(0, 1))
	assert.Equal(t, []notification{{kind: "removed", start: 0, stop: 1}}, rec.got, "selection untouched")
	assert.Equal(t, []int{0, 2}, v.SelectedIndices())

	rec.got = nil
	require.NoError(t, v.RemoveRecords(0, 2))
	assert.Equal(t, []notification{
		{kind: "removed", start: 0, stop: 2},
		{kind: "selection", sel: []int{0}},
	}, rec.got)

	assert.ErrorIs(t, v.RemoveRecords(0, 5), ErrRange)
	assert.ErrorIs(t, v.RemoveRecords(1, 1), ErrRange)
}

func TestActiveReference(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ph(0, "P"))

	_, ok := v.ActiveReference()
	assert.False(t, ok)

	assert.ErrorIs(t, v.SetActiveReference(1), ErrNotEvent)
	assert.ErrorIs(t, v.SetActiveReference(5), ErrRange)
	require.NoError(t, v.SetActiveReference(0))

	ref, ok := v.ActiveReference()
	require.True(t, ok)
	assert.Equal(t, "A", ref.Label())

	require.NoError(t, v.RemoveRecords(0, 1))
	_, ok = v.ActiveReference()
	assert.False(t, ok)
}

func TestActiveReferenceNotifies(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ev(time.Minute, "B"))
	rec := &recorder{}
	v.Attach(rec)

	require.NoError(t, v.SetActiveReference(1))
	require.NoError(t, v.SetActiveReference(1))
	assert.Equal(t, []notification{{kind: "active"}}, rec.got, "unchanged reference is not announced")

	rec.got = nil
	require.NoError(t, v.RemoveRecords(0, 1))
	assert.Equal(t, []notification{{kind: "removed", start: 0, stop: 1}}, rec.got)

	rec.got = nil
	require.NoError(t, v.RemoveRecords(0, 1))
	assert.Equal(t, []notification{{kind: "removed", start: 0, stop: 1}, {kind: "active"}}, rec.got)
}

func TestTimeRange(t *testing.T) {
	v := New(nil, nil)
	assert.ErrorIs(t, v.SetTimeRange(t0, t0), ErrTimeRange)
	require.NoError(t, v.SetTimeRange(t0, t0.Add(time.Hour)))
	tmin, tmax := v.TimeRange()
	assert.Equal(t, t0, tmin)
	assert.Equal(t, t0.Add(time.Hour), tmax)
}

func TestGoToSelection(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ev(0, "A"), ph(10*time.Second, "P"), ev(time.Minute, "B"))
	require.NoError(t, v.SetTimeRange(t0.Add(-time.Hour), t0))

	v.GoToSelection()
	tmin, _ := v.TimeRange()
	assert.Equal(t, t0.Add(-time.Hour), tmin, "no selection, no move")

	v.SetSelection([]int{0, 1}) // spans 0s to 12s
	v.GoToSelection()
	tmin, tmax := v.TimeRange()
	assert.Equal(t, t0.Add(-1200*time.Millisecond), tmin)
	assert.Equal(t, t0.Add(13200*time.Millisecond), tmax)

	v.SetSelection([]int{2})
	v.GoToSelection()
	tmin, tmax = v.TimeRange()
	assert.Equal(t, t0.Add(55*time.Second), tmin)
	assert.Equal(t, t0.Add(65*time.Second), tmax)
}

func TestStations(t *testing.T) {
	v := New(nil, nil)
	assert.False(t, v.HasStation("GE.APE."))
	_, err := v.AddStations(core.Station{Network: "GE", Station: "APE"})
	assert.Error(t, err)

	v = New(memory.New(), nil)
	n, err := v.AddStations(core.Station{Network: "GE", Station: "APE"}, core.Station{Network: "GE", Station: "APE"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, v.HasStation("GE.APE."))

	stations, err := v.Stations()
	require.NoError(t, err)
	assert.Len(t, stations, 1)
}

func TestEditorIntegration(t *testing.T) {
	v := New(nil, nil)
	v.AddRecords(ph(4*time.Second, "S"), ev(time.Second, "A"), ph(0, "P"))

	e, err := markertable.NewEditor(v, markertable.DefaultOptions())
	require.NoError(t, err)
	v.Attach(e)
	require.Equal(t, 3, e.RowCount())

	// display order by time: P, A, S
	e.SelectRows(1)
	assert.Equal(t, []int{1}, v.SelectedIndices())
	assert.Equal(t, []int{1}, e.SelectedRows())

	v.SetSelection([]int{0, 2})
	assert.Equal(t, []int{0, 2}, e.SelectedRows())

	require.NoError(t, v.RemoveRecords(2, 3))
	assert.Equal(t, 2, e.RowCount())
	assert.Equal(t, []int{1}, e.SelectedRows(), "S is still selected at its new display row")
}

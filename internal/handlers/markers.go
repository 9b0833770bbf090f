package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseTime parses a marker time. Times without zone are UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a time", ErrUsage, s)
}

// AddEvent adds an event marker.
//
//	:EVENT: <time> [name] [lat=] [lon=] [depth=km] [mag=] [catalog=] [mt=Mw strike= dip= rake=]
func (s *Service) AddEvent(args []string) (string, error) {
	pos, opts := splitOptions(args)
	if len(pos) == 0 {
		return "", fmt.Errorf("%w: :EVENT: <time> [name] [key=value...]", ErrUsage)
	}
	t, err := parseTime(pos[0])
	if err != nil {
		return "", err
	}

	ev := &core.Event{Name: strings.Join(pos[1:], " "), Time: t, Catalog: opts["catalog"]}
	if ev.Lat, err = optFloat(opts, "lat"); err != nil {
		return "", err
	}
	if ev.Lon, err = optFloat(opts, "lon"); err != nil {
		return "", err
	}
	if ev.Magnitude, err = optFloat(opts, "mag"); err != nil {
		return "", err
	}
	depth, err := optFloat(opts, "depth")
	if err != nil {
		return "", err
	}
	if depth != nil {
		ev.Depth = core.Float(*depth * 1000)
	}

	mw, err := optFloat(opts, "mt")
	if err != nil {
		return "", err
	}
	if mw != nil {
		mt := &core.MomentTensor{Magnitude: *mw}
		for key, dst := range map[string]*float64{"strike": &mt.Strike1, "dip": &mt.Dip1, "rake": &mt.Rake1} {
			v, err := optFloat(opts, key)
			if err != nil {
				return "", err
			}
			if v != nil {
				*dst = *v
			}
		}
		ev.MomentTensor = mt
	}

	start, _ := s.deps.Viewer.AddRecords(&core.EventRecord{Tmin: t, Tmax: t, EventName: ev.Name, Event: ev})
	return fmt.Sprintf("event %d added", start), nil
}

// AddPhase adds a phase marker, optionally assigned to the event marker at
// record index event.
//
//	:PHASE: <time> <name> [length=duration] [event=index]
func (s *Service) AddPhase(args []string) (string, error) {
	pos, opts := splitOptions(args)
	if len(pos) < 2 {
		return "", fmt.Errorf("%w: :PHASE: <time> <name> [length=2s] [event=index]", ErrUsage)
	}
	t, err := parseTime(pos[0])
	if err != nil {
		return "", err
	}

	rec := &core.PhaseRecord{Tmin: t, Tmax: t, PhaseName: strings.Join(pos[1:], " ")}
	if l, ok := opts["length"]; ok {
		d, err := time.ParseDuration(l)
		if err != nil || d < 0 {
			return "", fmt.Errorf("%w: length=%q is not a duration", ErrUsage, l)
		}
		rec.Tmax = t.Add(d)
	}
	if ref, ok := opts["event"]; ok {
		idx, err := strconv.Atoi(ref)
		if err != nil {
			return "", fmt.Errorf("%w: event=%q is not an index", ErrUsage, ref)
		}
		recs := s.deps.Viewer.Records()
		if idx < 0 || idx >= len(recs) {
			return "", fmt.Errorf("%w: no record %d", ErrUsage, idx)
		}
		er, ok := recs[idx].(*core.EventRecord)
		if !ok || er.Event == nil {
			return "", fmt.Errorf("%w: record %d is not an event", ErrUsage, idx)
		}
		rec.EventHash = core.String(er.Event.Hash())
	}

	start, _ := s.deps.Viewer.AddRecords(rec)
	return fmt.Sprintf("phase %d added", start), nil
}

// Remove deletes the markers shown in the given table rows.
//
//	:REMOVE: <row>...
func (s *Service) Remove(args []string) (string, error) {
	rows, err := parseInts(args)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: :REMOVE: <row>...", ErrUsage)
	}

	seen := map[int]struct{}{}
	var indices []int
	for _, r := range rows {
		idx, ok := s.deps.Editor.Proxy().ToDomain(r)
		if !ok {
			return "", fmt.Errorf("%w: no row %d", ErrUsage, r)
		}
		if _, dup := seen[idx]; !dup {
			seen[idx] = struct{}{}
			indices = append(indices, idx)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, idx := range indices {
		if err := s.deps.Viewer.RemoveRecords(idx, idx+1); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d removed", len(indices)), nil
}

// Select sets the viewer selection by record index. No index clears it.
//
//	:SELECT: [index...]
func (s *Service) Select(args []string) (string, error) {
	indices, err := parseInts(args)
	if err != nil {
		return "", err
	}
	s.deps.Viewer.SetSelection(indices)
	return "", nil
}

// SelectRows sets the table selection by display row.
//
//	:SELECT:ROWS: [row...]
func (s *Service) SelectRows(args []string) (string, error) {
	rows, err := parseInts(args)
	if err != nil {
		return "", err
	}
	n := s.deps.Editor.RowCount()
	for _, r := range rows {
		if r < 0 || r >= n {
			return "", fmt.Errorf("%w: no row %d", ErrUsage, r)
		}
	}
	s.deps.Editor.SelectRows(rows...)
	return "", nil
}

// SetActive makes the event marker at record index the distance reference.
//
//	:ACTIVE: <index>
func (s *Service) SetActive(args []string) (string, error) {
	idx, err := parseInts(args)
	if err != nil {
		return "", err
	}
	if len(idx) != 1 {
		return "", fmt.Errorf("%w: :ACTIVE: <index>", ErrUsage)
	}
	if err := s.deps.Viewer.SetActiveReference(idx[0]); err != nil {
		return "", err
	}
	return "", nil
}

// SetTimeRange sets the visible time range, or moves it to the selection.
//
//	:TIMERANGE: <tmin> <tmax> | selection
func (s *Service) SetTimeRange(args []string) (string, error) {
	switch {
	case len(args) == 1 && strings.EqualFold(args[0], "selection"):
		s.deps.Viewer.GoToSelection()
	case len(args) == 2:
		tmin, err := parseTime(args[0])
		if err != nil {
			return "", err
		}
		tmax, err := parseTime(args[1])
		if err != nil {
			return "", err
		}
		if err := s.deps.Viewer.SetTimeRange(tmin, tmax); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: :TIMERANGE: <tmin> <tmax> | selection", ErrUsage)
	}

	tmin, tmax := s.deps.Viewer.TimeRange()
	return fmt.Sprintf("time range %s - %s", tmin.Format(time.RFC3339), tmax.Format(time.RFC3339)), nil
}

package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/seismotools/markereditor/internal/markertable"
	"github.com/seismotools/markereditor/pkg/core"
)

// ErrEditRejected is returned when a cell does not accept the value.
var ErrEditRejected = errors.New("edit rejected")

func (s *Service) row(arg string) (int, error) {
	r, err := strconv.Atoi(arg)
	if err != nil || r < 0 || r >= s.deps.Editor.RowCount() {
		return 0, fmt.Errorf("%w: no row %s", ErrUsage, arg)
	}
	return r, nil
}

func column(arg string) (markertable.Column, error) {
	c, ok := markertable.ColumnByName(arg)
	if !ok {
		return 0, fmt.Errorf("%w: unknown column %q", ErrUsage, arg)
	}
	return c, nil
}

// Edit writes a cell.
//
//	:EDIT: <row> <column> <value...>
func (s *Service) Edit(args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("%w: :EDIT: <row> <column> <value>", ErrUsage)
	}
	row, err := s.row(args[0])
	if err != nil {
		return "", err
	}
	col, err := column(args[1])
	if err != nil {
		return "", err
	}
	value := strings.Join(args[2:], " ")
	if !s.deps.Editor.Write(row, col, value) {
		return "", fmt.Errorf("%w: %s of row %d = %q", ErrEditRejected, col, row, value)
	}
	return "", nil
}

// Sort orders the table.
//
//	:SORT: <column> [asc|desc]
func (s *Service) Sort(args []string) (string, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", fmt.Errorf("%w: :SORT: <column> [asc|desc]", ErrUsage)
	}
	col, err := column(args[0])
	if err != nil {
		return "", err
	}
	descending := false
	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "asc":
		case "desc":
			descending = true
		default:
			return "", fmt.Errorf("%w: sort order %q", ErrUsage, args[1])
		}
	}
	s.deps.Editor.Sort(col, descending)
	return "", nil
}

// Filter restricts the shown rows.
//
//	:FILTER: all | events | phases | label=<text>
func (s *Service) Filter(args []string) (string, error) {
	pos, opts := splitOptions(args)
	var f markertable.FilterFunc
	switch {
	case len(opts) == 1 && opts["label"] != "":
		text := strings.ToLower(opts["label"])
		f = func(_ int, rec core.Record) bool {
			return strings.Contains(strings.ToLower(rec.Label()), text)
		}
	case len(opts) == 0 && len(pos) == 1:
		switch strings.ToLower(pos[0]) {
		case "all":
		case "events":
			f = func(_ int, rec core.Record) bool {
				_, ok := rec.(*core.EventRecord)
				return ok
			}
		case "phases":
			f = func(_ int, rec core.Record) bool {
				_, ok := rec.(*core.PhaseRecord)
				return ok
			}
		default:
			return "", fmt.Errorf("%w: unknown filter %q", ErrUsage, pos[0])
		}
	default:
		return "", fmt.Errorf("%w: :FILTER: all | events | phases | label=<text>", ErrUsage)
	}
	s.deps.Editor.SetFilter(f)
	return fmt.Sprintf("%d rows shown", s.deps.Editor.RowCount()), nil
}

// Columns shows, hides or toggles a column group. Without arguments it
// lists the visible columns.
//
//	:COLUMNS: [<group> [on|off]]
func (s *Service) Columns(args []string) (string, error) {
	if len(args) > 0 {
		name := args
		action := "toggle"
		if last := strings.ToLower(args[len(args)-1]); last == "on" || last == "off" {
			name, action = args[:len(args)-1], last
		}
		g, ok := markertable.GroupByName(strings.Join(name, " "))
		if !ok {
			return "", fmt.Errorf("%w: unknown column group %q", ErrUsage, strings.Join(name, " "))
		}
		switch action {
		case "on":
			s.deps.Editor.SetGroupVisible(g, true)
		case "off":
			s.deps.Editor.SetGroupVisible(g, false)
		default:
			s.deps.Editor.ToggleGroup(g)
		}
	}

	cols := s.deps.Editor.VisibleColumns()
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header()
	}
	return strings.Join(headers, " | "), nil
}

// Details shows the detail view of the single selected row.
//
//	:DETAILS:
func (s *Service) Details(args []string) (string, error) {
	d, err := s.deps.Editor.ShowDetails()
	if err != nil {
		return "", err
	}
	return renderDetails(d), nil
}

// Activate double clicks a cell.
//
//	:ACTIVATE: <row> <column>
func (s *Service) Activate(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: :ACTIVATE: <row> <column>", ErrUsage)
	}
	row, err := s.row(args[0])
	if err != nil {
		return "", err
	}
	col, err := column(args[1])
	if err != nil {
		return "", err
	}
	d, ok, err := s.deps.Editor.Activate(row, col)
	if err != nil {
		return "", err
	}
	if !ok {
		return "editable cell, use :EDIT:", nil
	}
	return renderDetails(d), nil
}

// Table renders the visible columns in display order. Selected rows are
// marked with '*'.
//
//	:TABLE:
func (s *Service) Table(args []string) (string, error) {
	e := s.deps.Editor
	cols := e.VisibleColumns()

	selected := map[int]bool{}
	for _, r := range e.SelectedRows() {
		selected[r] = true
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(cols)+1)
	header = append(header, "#")
	for _, c := range cols {
		header = append(header, c.Header())
	}
	t.AppendHeader(header)

	for r := 0; r < e.RowCount(); r++ {
		row := make(table.Row, 0, len(cols)+1)
		mark := strconv.Itoa(r)
		if selected[r] {
			mark += "*"
		}
		row = append(row, mark)
		for _, c := range cols {
			row = append(row, e.Read(r, c))
		}
		t.AppendRow(row)
	}
	return t.Render(), nil
}

func renderDetails(d markertable.Details) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Label", d.Label})
	t.AppendRow(table.Row{"Start", d.Tmin.UTC().Format(markertable.TimeFormat)})
	t.AppendRow(table.Row{"End", d.Tmax.UTC().Format(markertable.TimeFormat)})
	if d.Event {
		t.AppendRow(table.Row{"Magnitude", optional(d.Magnitude, 1)})
		depth := d.Depth
		if depth != nil {
			depth = core.Float(*depth / 1000)
		}
		t.AppendRow(table.Row{"Depth [km]", optional(depth, 1)})
		phases := make([]string, len(d.AssignedPhases))
		for i, p := range d.AssignedPhases {
			phases[i] = fmt.Sprintf("%s (%s)", p.PhaseName, p.Tmin.UTC().Format(time.TimeOnly))
		}
		t.AppendRow(table.Row{"Phases", strings.Join(phases, ", ")})
	}
	return t.Render()
}

func optional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

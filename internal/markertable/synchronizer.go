package markertable

// Synchronizer bridges the viewer's selection (domain rows) and the table's
// selection (display rows). Each direction is an explicit one-way command;
// a direction in progress suppresses the other so a change never echoes
// back to where it came from.
type Synchronizer struct {
	store     RecordStore
	proxy     *Proxy
	selection *SelectionModel
	log       Logger

	applyingExternal bool // domain -> display in progress
	pushing          bool // display -> domain in progress
}

// NewSynchronizer binds selection to store through proxy. It installs itself
// as the selection's change callback.
func NewSynchronizer(store RecordStore, proxy *Proxy, selection *SelectionModel, log Logger) *Synchronizer {
	s := &Synchronizer{
		store:     store,
		proxy:     proxy,
		selection: selection,
		log:       defaultLogger(log),
	}
	selection.OnChange(s.DisplaySelectionChanged)
	return s
}

// ApplyDomainSelection mirrors the viewer's selection into the table. The
// first index becomes the current row and is scrolled into view. It reports
// false when the update is the echo of a push from the table.
func (s *Synchronizer) ApplyDomainSelection(indices []int) bool {
	if s.pushing {
		return false
	}
	s.applyingExternal = true
	defer func() { s.applyingExternal = false }()

	s.selection.Clear()
	for _, idx := range indices {
		if row, ok := s.proxy.ToDisplay(idx); ok {
			s.selection.SelectRow(row)
		}
	}
	if len(indices) == 0 {
		return true
	}
	if first, ok := s.proxy.ToDisplay(indices[0]); ok {
		s.selection.SetCurrent(first)
		s.selection.ScrollTo(first)
	}
	return true
}

// DisplaySelectionChanged pushes the table's selection to the viewer as the
// new authoritative selection, in display order.
func (s *Synchronizer) DisplaySelectionChanged() {
	if s.applyingExternal || s.pushing {
		return
	}

	rows := s.selection.SelectedRows()
	indices := make([]int, 0, len(rows))
	for _, r := range rows {
		if idx, ok := s.proxy.ToDomain(r); ok {
			indices = append(indices, idx)
		}
	}

	s.pushing = true
	defer func() { s.pushing = false }()
	s.log.Debug("pushing table selection", "rows", len(indices))
	s.store.SetSelection(indices)
}

// Pushing reports whether a table selection is being pushed to the viewer.
func (s *Synchronizer) Pushing() bool { return s.pushing }

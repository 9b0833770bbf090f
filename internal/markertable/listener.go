package markertable

import (
	"log/slog"

	"github.com/seismotools/markereditor/pkg/core"
)

// RecordStore is the externally owned marker list the table is bound to.
// Records returns a read-only view that stays valid until the next
// insert or remove notification. ActiveReference is the record distances
// are measured from, if the store distinguishes one.
type RecordStore interface {
	Records() []core.Record
	SetSelection(indices []int)
	ActiveReference() (core.Record, bool)
}

// Cell addresses one table cell in projection (domain) coordinates.
type Cell struct {
	Row int
	Col Column
}

// Listener receives change notifications from a Projection.
// Row ranges are half-open.
type Listener interface {
	RowsInserted(start, stop int)
	RowsRemoved(start, stop int)
	DataChanged(topLeft, bottomRight Cell)
	Reset()
}

// LayoutListener receives display order changes from a Proxy. remap maps each
// display row of the previous layout to its new display row, or -1 if the
// row is gone.
type LayoutListener interface {
	LayoutChanged(remap []int)
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

func defaultLogger(l Logger) Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

package logging

import (
	"context"
	"log/slog"
)

// SessionAttrs reports the editing session's current state, such as its id
// and record counts. It is called once for every record logged.
type SessionAttrs func() []slog.Attr

// sessionHandler appends the session state to each record it passes on.
type sessionHandler struct {
	slog.Handler
	state SessionAttrs
}

func (h sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.state()...)
	return h.Handler.Handle(ctx, r)
}

func (h sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sessionHandler{Handler: h.Handler.WithAttrs(attrs), state: h.state}
}

func (h sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return sessionHandler{Handler: h.Handler.WithGroup(name), state: h.state}
}

package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectStdout points the default destination at a pipe until the
// returned function collects what was written.
func redirectStdout(t *testing.T) func() string {
	t.Helper()
	r, w, err := osPipe()
	require.NoError(t, err)
	saved := osStdout
	osStdout = w
	t.Cleanup(func() { osStdout = saved })

	return func() string {
		w.Close()
		out, _ := io.ReadAll(r)
		r.Close()
		return string(out)
	}
}

func TestSetup_Destination(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		collect := redirectStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("record added")

		assert.Contains(t, file.String(), "record added")
		assert.Empty(t, collect(), "stdout stays quiet when a file is given")
	})

	t.Run("stdout", func(t *testing.T) {
		collect := redirectStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("record added")

		assert.Contains(t, collect(), "record added")
	})
}

func TestSetup_Levels(t *testing.T) {
	for _, tt := range []struct {
		level     string
		debugSeen bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
	} {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("cache recomputed")
			m.Logger().Warn("station lookup failed")

			assert.Equal(t, tt.debugSeen, strings.Contains(buf.String(), "cache recomputed"))
			assert.Contains(t, buf.String(), "station lookup failed")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(&first, "info", nil)
	m.Setup(&second, "info", nil)
	m.Logger().Info("after reopen")

	assert.NotContains(t, first.String(), "after reopen")
	assert.Contains(t, second.String(), "after reopen")
}

func TestSetup_TimestampsAreUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	line := strings.SplitN(buf.String(), "\n", 2)[0]
	require.True(t, strings.HasPrefix(line, "time="), line)
	stamp := strings.Fields(line)[0][len("time="):]
	_, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stamp, "Z"), stamp)
}

func TestSetup_SessionStateIsReadPerRecord(t *testing.T) {
	var buf bytes.Buffer
	records, selected := 0, 0
	m := NewSlogManager()
	m.Setup(&buf, "info", func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", "s-1"),
			slog.Int("records", records),
			slog.Int("selected", selected),
		}
	})

	records, selected = 3, 1
	m.Logger().Info("selection changed")
	records = 2
	m.Logger().Info("records removed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "records=0")
	assert.Contains(t, lines[1], "session=s-1 records=3 selected=1")
	assert.Contains(t, lines[2], "records=2 selected=1")
}

func TestSetup_SessionStateSurvivesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", func() []slog.Attr { return []slog.Attr{slog.String("session", "s-2")} })

	m.Logger().With("component", "download").WithGroup("query").Info("resolved", "site", "GEOFON")
	out := buf.String()
	assert.Contains(t, out, "component=download")
	assert.Contains(t, out, "query.site=GEOFON")
	assert.Contains(t, out, "query.session=s-2")

	h := sessionHandler{Handler: slog.NewTextHandler(io.Discard, nil)}
	assert.Equal(t, h, h.WithGroup(""))
}

func TestSetup_MirrorsKeepTheirOwnLevel(t *testing.T) {
	var file, terminal bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "debug", nil, slog.NewTextHandler(&terminal, &slog.HandlerOptions{Level: slog.LevelWarn}))

	m.Logger().Debug("distance cache recomputed")
	m.Logger().Error("download failed", "site", "IRIS")

	assert.Contains(t, file.String(), "distance cache recomputed")
	assert.Contains(t, file.String(), "download failed")
	assert.NotContains(t, terminal.String(), "distance cache recomputed")
	assert.Contains(t, terminal.String(), "site=IRIS")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestWriteLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)
			m.WriteLog(":DOWNLOAD:", "queued "+level, level)

			want := strings.ToUpper(level)
			if level == "unknown" {
				want = "INFO"
			}
			assert.Contains(t, buf.String(), "level="+want+" msg=\"queued "+level+"\" command=:DOWNLOAD:")
		})
	}

	NewSlogManager().WriteLog(":SAVE:", "before setup", "info")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("Debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func TestFanout(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	f := newFanout(nil, failingHandler{}, text, nil)
	require.Len(t, f, 2)
	assert.False(t, newFanout().Enabled(context.Background(), slog.LevelError))
	assert.False(t, newFanout(text).Enabled(context.Background(), slog.LevelDebug))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "saved", 0)
	err := f.Handle(context.Background(), r)
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "msg=saved", "a failing handler does not block the others")

	buf.Reset()
	slog.New(newFanout(text).WithAttrs([]slog.Attr{slog.String("command", ":SAVE:")}).WithGroup("marker")).
		Info("written", "kind", "event")
	assert.Contains(t, buf.String(), "command=:SAVE: marker.kind=event")
	assert.Equal(t, f, f.WithGroup(""))
}

// Package handlers implements the session commands that drive a marker
// editing session: adding and removing markers, selection, table edits and
// layout, detail views and waveform downloads.
package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seismotools/markereditor/internal/dispatcher"
	"github.com/seismotools/markereditor/internal/download"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/seismotools/markereditor/internal/markertable"
	"github.com/seismotools/markereditor/internal/viewer"
)

// ErrUsage is returned for malformed command arguments.
var ErrUsage = errors.New("usage")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Viewer   *viewer.Viewer
	Editor   *markertable.Editor
	Download *download.Workflow
	// DownloadDefaults are the configured download parameters that
	// :DOWNLOAD: arguments override.
	DownloadDefaults download.Options
	LogManager       *logging.SlogManager
}

// Service provides the session command handlers
type Service struct {
	deps         Dependencies
	ctx          context.Context
	dispatcher   *dispatcher.Dispatcher
	writeLogFunc func(functionName, data, level string)
}

// NewService creates a new handler service. ctx bounds network requests
// made by commands.
func NewService(ctx context.Context, deps Dependencies) *Service {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Service{
		deps: deps,
		ctx:  ctx,
	}
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

// Register installs the session commands on d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	s.dispatcher = d

	d.Register(":EVENT:", s.handle(s.AddEvent), dispatcher.Logged())
	d.Register(":PHASE:", s.handle(s.AddPhase), dispatcher.Logged())
	d.Register(":REMOVE:", s.handle(s.Remove), dispatcher.Logged())
	d.Register(":SELECT:", s.handle(s.Select), dispatcher.Logged())
	d.Register(":SELECT:ROWS:", s.handle(s.SelectRows), dispatcher.Logged())
	d.Register(":ACTIVE:", s.handle(s.SetActive), dispatcher.Logged())
	d.Register(":TIMERANGE:", s.handle(s.SetTimeRange), dispatcher.Logged())
	d.Register(":EDIT:", s.handle(s.Edit), dispatcher.Logged())
	d.Register(":SORT:", s.handle(s.Sort), dispatcher.Logged())
	d.Register(":FILTER:", s.handle(s.Filter), dispatcher.Logged())
	d.Register(":COLUMNS:", s.handle(s.Columns), dispatcher.Logged())
	d.Register(":DETAILS:", s.handle(s.Details), dispatcher.Logged())
	d.Register(":ACTIVATE:", s.handle(s.Activate), dispatcher.Logged())
	d.Register(":TABLE:", s.handle(s.Table))
	d.Register(":STATIONS:", s.handle(s.Stations))
	d.Register(":HISTORY:", s.handle(s.History))
	d.Register(":DOWNLOAD:", s.fetchDownload,
		dispatcher.Buffered(4), dispatcher.Blocking(), dispatcher.Logged(), dispatcher.Prepared(s.prepareDownload))
	d.Register(":SAVE:", s.handle(s.Save), dispatcher.Logged())
}

func (s *Service) handle(fn func(args []string) (string, error)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		out, err := fn(e.Args)
		if err != nil {
			s.writeLog(e.Command, err.Error(), "WARN")
			return nil, err
		}
		return out, nil
	}
}

// RunScript dispatches every command line read from r and writes results
// and errors to out. Failing commands do not stop the script. Results of
// queued commands are written as they are collected, and all of them before
// returning.
func RunScript(d *dispatcher.Dispatcher, r io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		e, ok := dispatcher.ParseLine(sc.Text())
		if !ok {
			continue
		}
		res, err := d.Dispatch(e)
		writeOutcomes(out, d.Completed())
		writeResult(out, e.Command, res, err)
	}
	d.Wait()
	writeOutcomes(out, d.Completed())
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func writeOutcomes(out io.Writer, outcomes []dispatcher.Outcome) {
	for _, o := range outcomes {
		writeResult(out, o.Event.Command, o.Result, o.Err)
	}
}

func writeResult(out io.Writer, command string, res any, err error) {
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", command, err)
		return
	}
	if str, ok := res.(string); ok && str != "" && str != "queued" {
		fmt.Fprintln(out, str)
	}
}

// splitOptions separates positional arguments from key=value options.
// Keys are lower-cased.
func splitOptions(args []string) (positional []string, opts map[string]string) {
	opts = make(map[string]string)
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok && k != "" {
			opts[strings.ToLower(k)] = v
			continue
		}
		positional = append(positional, a)
	}
	return positional, opts
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an index", ErrUsage, a)
		}
		out = append(out, n)
	}
	return out, nil
}

func optFloat(opts map[string]string, key string) (*float64, error) {
	v, ok := opts[key]
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q is not a number", ErrUsage, key, v)
	}
	return &f, nil
}

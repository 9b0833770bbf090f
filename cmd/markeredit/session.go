package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/seismotools/markereditor/internal/config"
	"github.com/seismotools/markereditor/internal/dispatcher"
	"github.com/seismotools/markereditor/internal/download"
	"github.com/seismotools/markereditor/internal/handlers"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/seismotools/markereditor/internal/markertable"
	"github.com/seismotools/markereditor/internal/storage"
	"github.com/seismotools/markereditor/internal/viewer"
)

// session is one editing session: the viewer with its station inventory,
// the marker table bound to it and the command dispatcher.
type session struct {
	id         string
	logManager *logging.SlogManager
	logFile    *os.File
	backend    storage.Backend
	viewer     *viewer.Viewer
	editor     *markertable.Editor
	dispatcher *dispatcher.Dispatcher
}

func openSession(ctx context.Context) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{id: uuid.NewString(), logManager: logging.NewSlogManager()}

	var logOut io.Writer = os.Stderr
	if f, err := openLogFile(config.GetString("logsDir"), time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log file, logging to stderr: %v\n", err)
	} else {
		s.logFile = f
		logOut = f
	}

	level := config.GetString("logLevel")
	s.logManager.Setup(logOut, level, s.logContext)
	log := s.logManager.Logger()

	var err error
	s.backend, err = storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{
		LogManager: s.logManager,
		DBLog:      logging.NewZerolog(logOut, level, "database"),
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.backend.Init(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize station inventory: %w", err)
	}

	s.viewer = viewer.New(s.backend, log.With("component", "viewer"))

	opts, err := editorOptions(config.GetTableConfig(), log.With("component", "markertable"))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.editor, err = markertable.NewEditor(s.viewer, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.editor.SetNavigator(s.viewer)
	s.viewer.Attach(s.editor)

	dl := config.GetDownloadConfig()
	flow := download.New(s.viewer,
		download.SiteResolver(config.GetFDSNSites(), dl.Timeout),
		s.backend,
		log.With("component", "download"))

	s.dispatcher, err = dispatcher.New(logging.NewZerologAdapter(logging.NewZerolog(logOut, level, "dispatcher")))
	if err != nil {
		s.Close()
		return nil, err
	}
	handlers.NewService(ctx, handlers.Dependencies{
		Viewer:           s.viewer,
		Editor:           s.editor,
		Download:         flow,
		DownloadDefaults: download.OptionsFromConfig(dl),
		LogManager:       s.logManager,
	}).Register(s.dispatcher)

	log.Info("Session ready", "storage", config.GetStorageConfig().Type)
	return s, nil
}

// logContext adds the session state to every log record.
func (s *session) logContext() []slog.Attr {
	if s.viewer == nil {
		return []slog.Attr{slog.String("session", s.id)}
	}
	return []slog.Attr{
		slog.String("session", s.id),
		slog.Int("records", s.viewer.Len()),
		slog.Int("selected", len(s.viewer.SelectedIndices())),
	}
}

func (s *session) Close() error {
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	var err error
	if s.backend != nil {
		err = s.backend.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
	return err
}

func openLogFile(logsDir string, start time.Time) (*os.File, error) {
	if logsDir == "" {
		return nil, fmt.Errorf("no logs directory configured")
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logging.LogFilePath(logsDir, "markeredit", start), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}

// editorOptions maps the table configuration onto the marker table options.
func editorOptions(cfg config.TableConfig, log markertable.Logger) (markertable.Options, error) {
	opts := markertable.DefaultOptions()
	opts.Logger = log

	if len(cfg.VisibleColumns) > 0 {
		groups := make([]markertable.Group, 0, len(cfg.VisibleColumns))
		for _, name := range cfg.VisibleColumns {
			g, ok := markertable.GroupByName(name)
			if !ok {
				return opts, fmt.Errorf("unknown column group in table.visibleColumns: %q", name)
			}
			groups = append(groups, g)
		}
		opts.VisibleGroups = groups
	}

	if cfg.SortColumn != "" {
		col, ok := markertable.ColumnByName(cfg.SortColumn)
		if !ok {
			return opts, fmt.Errorf("unknown table.sortColumn: %q", cfg.SortColumn)
		}
		opts.SortColumn = col
	}
	opts.Descending = cfg.SortDescending

	refresh, err := markertable.ParseRefreshMode(cfg.DistanceRefresh)
	if err != nil {
		return opts, err
	}
	opts.Refresh = refresh
	return opts, nil
}

// Package download fetches waveform data from an FDSN data center for the
// stations around an origin and keeps the last result for saving.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seismotools/markereditor/internal/config"
	"github.com/seismotools/markereditor/internal/fdsn"
	"github.com/seismotools/markereditor/pkg/core"
)

// MaxRadius is the largest accepted search radius in degrees.
const MaxRadius = 20.0

var (
	ErrSelectionCardinality = errors.New("Exactly one marker must be selected.")
	ErrNotEventMarker       = errors.New("An event marker must be selected.")
	ErrNoLocation           = errors.New("The selected event has no location.")
	ErrInvalidCoordinates   = errors.New("invalid origin coordinates")
	ErrInvalidRadius        = errors.New("invalid search radius")
	ErrTimeRange            = errors.New("no valid time range")
	ErrNoStations           = errors.New("No stations matching given criteria.")
	ErrNoData               = errors.New("Did not get any data for given selection.")
	ErrNothingToSave        = errors.New("Nothing to save.")
)

// Service is the part of an FDSN data center the workflow needs.
type Service interface {
	Stations(ctx context.Context, q fdsn.StationQuery) ([]core.Station, error)
	Dataselect(ctx context.Context, selection []fdsn.Selection) ([]byte, error)
}

// Resolver returns the service for a lower-case data center name.
type Resolver func(site string) (Service, error)

// SiteResolver resolves data center names against configured base URLs.
func SiteResolver(sites map[string]string, timeout time.Duration) Resolver {
	return func(site string) (Service, error) {
		u, err := fdsn.SiteURL(sites, site)
		if err != nil {
			return nil, err
		}
		return fdsn.New(u, timeout), nil
	}
}

// Viewer is the host the workflow reads its origin and time range from and
// adds new stations to.
type Viewer interface {
	SelectedRecords() []core.Record
	TimeRange() (tmin, tmax time.Time)
	HasStation(nsl string) bool
	AddStations(stations ...core.Station) (int, error)
}

// History records completed downloads.
type History interface {
	RecordDownload(core.DownloadSummary) error
}

// Options are the user parameters of a download.
type Options struct {
	Site           string
	ChannelPattern string
	MinRadius      float64
	MaxRadius      float64
	// UseEvent takes the origin from the selected event marker instead of
	// Lat and Lon.
	UseEvent bool
	Lat      float64
	Lon      float64
}

// OptionsFromConfig returns the configured download defaults.
func OptionsFromConfig(cfg config.DownloadConfig) Options {
	return Options{
		Site:           cfg.Datacenter,
		ChannelPattern: cfg.ChannelPattern,
		MinRadius:      cfg.MinRadius,
		MaxRadius:      cfg.MaxRadius,
		UseEvent:       cfg.UseEvent,
	}
}

// Query is a fully resolved download request.
type Query struct {
	Lat            float64
	Lon            float64
	MinRadius      float64
	MaxRadius      float64
	Tmin           time.Time
	Tmax           time.Time
	ChannelPattern string
	Site           string
}

// Result is the outcome of a successful download.
type Result struct {
	Query    Query
	Stations []core.Station
	// Networks lists the networks that returned data, sorted.
	Networks []string
	Data     map[string][]byte
}

// TotalBytes is the size of all waveform payloads.
func (r *Result) TotalBytes() int {
	n := 0
	for _, d := range r.Data {
		n += len(d)
	}
	return n
}

// Workflow runs downloads against a viewer.
type Workflow struct {
	viewer  Viewer
	resolve Resolver
	history History
	log     *slog.Logger

	mu      sync.Mutex
	current *Result
}

// New creates a workflow. history may be nil.
func New(viewer Viewer, resolve Resolver, history History, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{
		viewer:  viewer,
		resolve: resolve,
		history: history,
		log:     log,
	}
}

// Current returns the last successful result, or nil.
func (w *Workflow) Current() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Workflow) setCurrent(r *Result) {
	w.mu.Lock()
	w.current = r
	w.mu.Unlock()
}

// BuildQuery validates opts against the viewer state.
func (w *Workflow) BuildQuery(opts Options) (Query, error) {
	tmin, tmax := w.viewer.TimeRange()
	if !tmax.After(tmin) {
		return Query{}, ErrTimeRange
	}

	lat, lon := opts.Lat, opts.Lon
	if opts.UseEvent {
		recs := w.viewer.SelectedRecords()
		if len(recs) != 1 {
			return Query{}, ErrSelectionCardinality
		}
		ev, ok := recs[0].(*core.EventRecord)
		if !ok {
			return Query{}, ErrNotEventMarker
		}
		if !ev.Event.HasLocation() {
			return Query{}, ErrNoLocation
		}
		lat, lon = *ev.Event.Lat, *ev.Event.Lon
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Query{}, fmt.Errorf("%w: %g, %g", ErrInvalidCoordinates, lat, lon)
	}

	if opts.MinRadius < 0 || opts.MaxRadius > MaxRadius || opts.MinRadius > opts.MaxRadius {
		return Query{}, fmt.Errorf("%w: %g - %g", ErrInvalidRadius, opts.MinRadius, opts.MaxRadius)
	}

	return Query{
		Lat:            lat,
		Lon:            lon,
		MinRadius:      opts.MinRadius,
		MaxRadius:      opts.MaxRadius,
		Tmin:           tmin,
		Tmax:           tmax,
		ChannelPattern: opts.ChannelPattern,
		Site:           strings.ToLower(opts.Site),
	}, nil
}

// Run builds a query from opts and runs it.
func (w *Workflow) Run(ctx context.Context, opts Options) (*Result, error) {
	q, err := w.BuildQuery(opts)
	if err != nil {
		w.setCurrent(nil)
		return nil, err
	}
	return w.RunQuery(ctx, q)
}

// RunQuery queries stations around the query origin and fetches their
// waveforms one network at a time. It only reads q, never the viewer's
// markers, so it may run after the viewer has moved on. Stations that are
// new to the viewer are added to it. The previous result is discarded, also
// on failure.
func (w *Workflow) RunQuery(ctx context.Context, q Query) (*Result, error) {
	w.setCurrent(nil)

	svc, err := w.resolve(q.Site)
	if err != nil {
		return nil, err
	}

	stations, err := svc.Stations(ctx, fdsn.StationQuery{
		Lat:             q.Lat,
		Lon:             q.Lon,
		MinRadius:       q.MinRadius,
		MaxRadius:       q.MaxRadius,
		StartBefore:     q.Tmin,
		EndAfter:        q.Tmax,
		Channel:         q.ChannelPattern,
		MatchTimeseries: q.Site == "iris",
	})
	if errors.Is(err, fdsn.ErrEmptyResult) {
		return nil, ErrNoStations
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Query: q, Stations: stations, Data: make(map[string][]byte)}
	for _, net := range networks(stations) {
		selection := fdsn.MakeSelection(stationsOf(stations, net), q.Tmin, q.Tmax)
		if len(selection) == 0 {
			continue
		}
		for _, s := range selection {
			w.log.Info("Adding data selection", "selection", s.String())
		}

		data, err := svc.Dataselect(ctx, selection)
		if errors.Is(err, fdsn.ErrEmptyResult) {
			w.log.Debug("No data for network", "network", net)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", net, err)
		}
		res.Networks = append(res.Networks, net)
		res.Data[net] = data
	}

	if len(res.Networks) == 0 {
		return nil, ErrNoData
	}

	w.addNewStations(stations)
	w.record(res)
	w.setCurrent(res)
	return res, nil
}

func (w *Workflow) addNewStations(stations []core.Station) {
	var fresh []core.Station
	for _, s := range stations {
		if !w.viewer.HasStation(s.NSL()) {
			w.log.Info("Adding station", "nsl", s.NSL())
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if _, err := w.viewer.AddStations(fresh...); err != nil {
		w.log.Warn("Failed to add stations", "err", err)
	}
}

func (w *Workflow) record(res *Result) {
	if w.history == nil {
		return
	}
	q := res.Query
	err := w.history.RecordDownload(core.DownloadSummary{
		Time:       time.Now(),
		Site:       q.Site,
		Lat:        q.Lat,
		Lon:        q.Lon,
		MinRadius:  q.MinRadius,
		MaxRadius:  q.MaxRadius,
		Tmin:       q.Tmin,
		Tmax:       q.Tmax,
		Channels:   q.ChannelPattern,
		Networks:   res.Networks,
		Stations:   len(res.Stations),
		TotalBytes: res.TotalBytes(),
	})
	if err != nil {
		w.log.Warn("Failed to record download", "err", err)
	}
}

// Save writes the current waveform data and station list. Data payloads are
// concatenated in network order.
func (w *Workflow) Save(dataPath, stationsPath string) error {
	res := w.Current()
	if res == nil {
		return ErrNothingToSave
	}

	f, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	for _, net := range res.Networks {
		if _, err := f.Write(res.Data[net]); err != nil {
			f.Close()
			return fmt.Errorf("failed to write data file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}

	sf, err := os.Create(stationsPath)
	if err != nil {
		return fmt.Errorf("failed to create stations file: %w", err)
	}
	if err := WriteStations(sf, res.Stations); err != nil {
		sf.Close()
		return err
	}
	if err := sf.Close(); err != nil {
		return fmt.Errorf("failed to write stations file: %w", err)
	}

	w.log.Info("Saved download", "data", dataPath, "stations", stationsPath, "networks", len(res.Networks))
	return nil
}

func networks(stations []core.Station) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range stations {
		if _, ok := seen[s.Network]; !ok {
			seen[s.Network] = struct{}{}
			out = append(out, s.Network)
		}
	}
	sort.Strings(out)
	return out
}

func stationsOf(stations []core.Station, net string) []core.Station {
	var out []core.Station
	for _, s := range stations {
		if s.Network == net {
			out = append(out, s)
		}
	}
	return out
}

package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/seismotools/markereditor/internal/dispatcher"
	"github.com/seismotools/markereditor/internal/download"
	"github.com/seismotools/markereditor/internal/geo"
)

var errNoDownload = errors.New("downloads are not configured")

// Download fetches waveforms around the selected event or an explicit
// origin. Options override the configured defaults; giving lat and lon
// switches off the event origin.
//
//	:DOWNLOAD: [site=] [channels=] [minradius=] [maxradius=] [lat= lon=|origin=lat,lon] [useevent=]
func (s *Service) Download(args []string) (string, error) {
	q, err := s.downloadQuery(args)
	if err != nil {
		return "", err
	}
	return s.runDownload(q)
}

// prepareDownload resolves the query of a queued :DOWNLOAD: when the command
// is dispatched, so later selection or time range changes do not reach it.
func (s *Service) prepareDownload(e dispatcher.Event) (dispatcher.Event, error) {
	q, err := s.downloadQuery(e.Args)
	if err != nil {
		s.writeLog(e.Command, err.Error(), "WARN")
		return e, err
	}
	e.Payload = q
	return e, nil
}

// fetchDownload is the queued half of :DOWNLOAD:.
func (s *Service) fetchDownload(e dispatcher.Event) (any, error) {
	q, ok := e.Payload.(download.Query)
	if !ok {
		return nil, fmt.Errorf("%w: %s was not prepared", ErrUsage, e.Command)
	}
	out, err := s.runDownload(q)
	if err != nil {
		s.writeLog(e.Command, err.Error(), "WARN")
		return nil, err
	}
	return out, nil
}

func (s *Service) downloadQuery(args []string) (download.Query, error) {
	if s.deps.Download == nil {
		return download.Query{}, errNoDownload
	}
	pos, kv := splitOptions(args)
	if len(pos) > 0 {
		return download.Query{}, fmt.Errorf("%w: unexpected argument %q", ErrUsage, pos[0])
	}

	opts := s.deps.DownloadDefaults
	for key, v := range kv {
		switch key {
		case "site":
			opts.Site = v
		case "channels":
			opts.ChannelPattern = v
		case "useevent":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return download.Query{}, fmt.Errorf("%w: useevent=%q", ErrUsage, v)
			}
			opts.UseEvent = b
		case "origin":
			p, err := geo.LatLonFromString(v)
			if err != nil {
				return download.Query{}, fmt.Errorf("%w: origin=%q: %v", ErrUsage, v, err)
			}
			opts.Lat, opts.Lon, _ = geo.LatLon(p)
		case "minradius", "maxradius", "lat", "lon":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return download.Query{}, fmt.Errorf("%w: %s=%q is not a number", ErrUsage, key, v)
			}
			switch key {
			case "minradius":
				opts.MinRadius = f
			case "maxradius":
				opts.MaxRadius = f
			case "lat":
				opts.Lat = f
			case "lon":
				opts.Lon = f
			}
		default:
			return download.Query{}, fmt.Errorf("%w: unknown option %q", ErrUsage, key)
		}
	}
	if _, ok := kv["useevent"]; !ok {
		_, hasLat := kv["lat"]
		_, hasOrigin := kv["origin"]
		if hasLat || hasOrigin {
			opts.UseEvent = false
		}
	}

	return s.deps.Download.BuildQuery(opts)
}

func (s *Service) runDownload(q download.Query) (string, error) {
	res, err := s.deps.Download.RunQuery(s.ctx, q)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("downloaded %d bytes from %s for networks %s (%d stations)",
		res.TotalBytes(), res.Query.Site, strings.Join(res.Networks, ","), len(res.Stations))
	s.writeLog(":DOWNLOAD:", msg, "INFO")
	return msg, nil
}

// Save writes the last download. It waits for queued downloads first.
//
//	:SAVE: <data file> <stations file>
func (s *Service) Save(args []string) (string, error) {
	if s.deps.Download == nil {
		return "", errNoDownload
	}
	if len(args) != 2 {
		return "", fmt.Errorf("%w: :SAVE: <data file> <stations file>", ErrUsage)
	}
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	if err := s.deps.Download.Save(args[0], args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved %s and %s", args[0], args[1]), nil
}

// Stations lists the station inventory.
//
//	:STATIONS:
func (s *Service) Stations(args []string) (string, error) {
	stations, err := s.deps.Viewer.Stations()
	if err != nil {
		return "", err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"NSL", "Lat", "Lon", "Elevation", "Channels", "Name"})
	for _, st := range stations {
		channels := make([]string, len(st.Channels))
		for i, ch := range st.Channels {
			channels[i] = ch.Name
		}
		t.AppendRow(table.Row{
			st.NSL(),
			strconv.FormatFloat(st.Lat, 'f', 4, 64),
			strconv.FormatFloat(st.Lon, 'f', 4, 64),
			strconv.FormatFloat(st.Elevation, 'f', 1, 64),
			strings.Join(channels, ","),
			st.Name,
		})
	}
	return t.Render(), nil
}

// History lists the recorded downloads, oldest first.
//
//	:HISTORY:
func (s *Service) History(args []string) (string, error) {
	downloads, err := s.deps.Viewer.Downloads()
	if err != nil {
		return "", err
	}
	if len(downloads) == 0 {
		return "no downloads", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Site", "Origin", "Radius", "Networks", "Stations", "Bytes"})
	for _, d := range downloads {
		t.AppendRow(table.Row{
			d.Time.UTC().Format(time.RFC3339),
			d.Site,
			fmt.Sprintf("%.3f,%.3f", d.Lat, d.Lon),
			fmt.Sprintf("%g-%g", d.MinRadius, d.MaxRadius),
			strings.Join(d.Networks, ","),
			d.Stations,
			d.TotalBytes,
		})
	}
	return t.Render(), nil
}

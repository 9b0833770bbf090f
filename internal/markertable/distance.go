package markertable

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/seismotools/markereditor/internal/geo"
	"github.com/seismotools/markereditor/pkg/core"
)

// DistanceCache holds the surface distance in km from one reference event to
// every other located event. Entries are keyed by record ID and are only
// recomputed on a single selection while the Distance column is visible.
// The reference is the store's active reference when it has one, and the
// selected record otherwise.
type DistanceCache struct {
	store   RecordStore
	visible func() bool
	log     Logger

	distances    map[core.RecordID]float64
	reference    core.RecordID
	hasReference bool
	stale        bool

	recomputed metric.Int64Counter
}

// NewDistanceCache creates an empty cache over store. visible reports whether
// the Distance column is shown; nil means always.
func NewDistanceCache(store RecordStore, visible func() bool, log Logger) (*DistanceCache, error) {
	c := &DistanceCache{
		store:     store,
		visible:   visible,
		log:       defaultLogger(log),
		distances: make(map[core.RecordID]float64),
	}

	var err error
	c.recomputed, err = meter().Int64Counter(
		"markertable.distance.recomputed",
		metric.WithDescription("Total distance cache recomputations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating recompute counter: %w", err)
	}
	return c, nil
}

// SelectionChanged recomputes the cache for a new viewer selection. It
// reports whether the cache was replaced.
func (c *DistanceCache) SelectionChanged(indices []int) bool {
	if len(indices) != 1 {
		return false
	}
	if c.visible != nil && !c.visible() {
		return false
	}

	recs := c.store.Records()
	idx := indices[0]
	if idx < 0 || idx >= len(recs) {
		return false
	}
	ref, ok := c.store.ActiveReference()
	if !ok {
		ref = recs[idx]
	}
	if c.hasReference && c.reference == ref.ID() && !c.stale {
		return false
	}

	refEvent, ok := locatedEvent(ref)
	if !ok {
		return false
	}

	n := 0
	for _, r := range recs {
		if _, ok := locatedEvent(r); ok {
			n++
		}
	}
	if n < 2 {
		return false
	}

	next := make(map[core.RecordID]float64, n-1)
	for _, r := range recs {
		if r.ID() == ref.ID() {
			continue
		}
		e, ok := locatedEvent(r)
		if !ok {
			continue
		}
		m := geo.DistanceAccurate50m(*refEvent.Lat, *refEvent.Lon, *e.Lat, *e.Lon)
		next[r.ID()] = m / 1000
	}

	c.distances = next
	c.reference = ref.ID()
	c.hasReference = true
	c.stale = false
	c.recomputed.Add(context.Background(), 1)
	c.log.Debug("distance cache recomputed", "reference", ref.ID(), "entries", len(next))
	return true
}

// locatedEvent returns the event of an EventRecord with both coordinates set.
func locatedEvent(r core.Record) (*core.Event, bool) {
	er, ok := r.(*core.EventRecord)
	if !ok || er.Event == nil || !er.Event.HasLocation() {
		return nil, false
	}
	return er.Event, true
}

// Distance returns the cached distance of id in km.
func (c *DistanceCache) Distance(id core.RecordID) (float64, bool) {
	d, ok := c.distances[id]
	return d, ok
}

// Reference returns the record distances are measured from.
func (c *DistanceCache) Reference() (core.RecordID, bool) {
	return c.reference, c.hasReference
}

// MarkStale forces the next selection of the current reference to recompute.
func (c *DistanceCache) MarkStale() {
	c.stale = true
}

// Len returns the number of cached distances.
func (c *DistanceCache) Len() int { return len(c.distances) }

// Purge drops entries for records no longer in the store. When the reference
// itself is gone the whole cache is cleared.
func (c *DistanceCache) Purge() {
	present := make(map[core.RecordID]struct{}, len(c.distances)+1)
	for _, r := range c.store.Records() {
		present[r.ID()] = struct{}{}
	}

	if c.hasReference {
		if _, ok := present[c.reference]; !ok {
			c.distances = make(map[core.RecordID]float64)
			c.hasReference = false
			c.reference = 0
			return
		}
	}
	for id := range c.distances {
		if _, ok := present[id]; !ok {
			delete(c.distances, id)
		}
	}
}

// pkg/core/marker.go
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// RecordID is the stable identity of a marker record. It is assigned once by
// the record store when the record is inserted and never reused.
type RecordID uint64

// Record is a time-bounded marker. It is either an *EventRecord or a
// *PhaseRecord; callers dispatch on the variant with a type switch.
type Record interface {
	ID() RecordID
	SetID(id RecordID)
	Span() (tmin, tmax time.Time)
	Label() string

	isRecord()
}

// EventRecord marks a seismic event. Event may be nil when the marker has
// not been associated with an event solution yet.
type EventRecord struct {
	id        RecordID
	Tmin      time.Time
	Tmax      time.Time
	EventName string // label used when no event is attached
	Event     *Event
}

// PhaseRecord marks a phase pick, optionally referencing an event by hash.
type PhaseRecord struct {
	id        RecordID
	Tmin      time.Time
	Tmax      time.Time
	PhaseName string
	EventHash *string
}

func (r *EventRecord) ID() RecordID                 { return r.id }
func (r *EventRecord) SetID(id RecordID)            { r.id = id }
func (r *EventRecord) Span() (time.Time, time.Time) { return r.Tmin, r.Tmax }
func (r *EventRecord) isRecord()                    {}

// Label returns the attached event's name, or the marker label without one.
func (r *EventRecord) Label() string {
	if r.Event != nil {
		return r.Event.Name
	}
	return r.EventName
}

func (r *PhaseRecord) ID() RecordID                 { return r.id }
func (r *PhaseRecord) SetID(id RecordID)            { r.id = id }
func (r *PhaseRecord) Span() (time.Time, time.Time) { return r.Tmin, r.Tmax }
func (r *PhaseRecord) Label() string                { return r.PhaseName }
func (r *PhaseRecord) isRecord()                    {}

// Event is a located seismic event. Optional scalars are nil when unset.
// Depth is in meters.
type Event struct {
	Name         string
	Time         time.Time
	Lat          *float64
	Lon          *float64
	Depth        *float64
	Magnitude    *float64
	Catalog      string
	MomentTensor *MomentTensor
}

// HasLocation reports whether both coordinates are set.
func (e *Event) HasLocation() bool {
	return e != nil && e.Lat != nil && e.Lon != nil
}

// PreferredMagnitude returns the moment tensor magnitude when a tensor is
// attached, otherwise the scalar magnitude.
func (e *Event) PreferredMagnitude() (float64, bool) {
	if e == nil {
		return 0, false
	}
	if e.MomentTensor != nil {
		return e.MomentTensor.Magnitude, true
	}
	if e.Magnitude != nil {
		return *e.Magnitude, true
	}
	return 0, false
}

// Hash identifies the event for phase association. It is derived from the
// origin time, location, depth and name.
func (e *Event) Hash() string {
	if e == nil {
		return ""
	}
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s",
		e.Time.UTC().Format(time.RFC3339Nano),
		formatOptional(e.Lat), formatOptional(e.Lon), formatOptional(e.Depth),
		formatOptional(e.Magnitude), e.Name)
	return hex.EncodeToString(h.Sum(nil))
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

// MomentTensor is a source mechanism solution. Only the magnitude and the
// first nodal plane are shown in the marker table.
type MomentTensor struct {
	Magnitude float64
	Strike1   float64
	Dip1      float64
	Rake1     float64
	Strike2   float64
	Dip2      float64
	Rake2     float64
}

// ScalarMoment returns the seismic moment in Nm for the tensor magnitude.
func (mt *MomentTensor) ScalarMoment() float64 {
	return MagnitudeToMoment(mt.Magnitude)
}

// MagnitudeToMoment converts moment magnitude to scalar moment [Nm].
func MagnitudeToMoment(mag float64) float64 {
	return math.Pow(10, 1.5*(mag+10.7)) * 1e-7
}

// MomentToMagnitude converts scalar moment [Nm] to moment magnitude.
func MomentToMagnitude(moment float64) float64 {
	return math.Log10(moment*1e7)/1.5 - 10.7
}

// Float returns a pointer to v, for populating optional event fields.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

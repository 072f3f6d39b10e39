package domain

import "time"

// Source identifies which upstream feed produced an event.
type Source string

const (
	SourceSeismic       Source = "seismic"
	SourceMultiHazard   Source = "multihazard"
	SourceFireDetection Source = "firedetection"
)

// AllSources lists every feed in snapshot ordering.
var AllSources = []Source{SourceSeismic, SourceMultiHazard, SourceFireDetection}

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one hazard observation in canonical form. Source is fixed at
// creation; ObservedAt is always UTC. Geo is nil when the upstream record
// carried no usable coordinates. The remaining fields are source-specific
// and zero-valued for other sources.
type Event struct {
	Source     Source    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
	Geo        *Geo      `json:"geo,omitempty"`

	// Seismic.
	Magnitude *float64 `json:"magnitude,omitempty"`
	Place     string   `json:"place,omitempty"`
	DepthKM   *float64 `json:"depth_km,omitempty"`

	// Seismic and multi-hazard.
	URL string `json:"url,omitempty"`

	// Multi-hazard.
	Title string `json:"title,omitempty"`

	// Fire detection.
	Brightness *float64 `json:"brightness,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
}

// HasCoordinates reports whether the event carries a coordinate pair.
func (e Event) HasCoordinates() bool {
	return e.Geo != nil
}

// AOI is a circular area of interest: a resolved center point and a radius.
// Center is nil when geocoding the query produced no result; an unresolved
// AOI matches nothing. Immutable for the duration of a query.
type AOI struct {
	Query    string
	Center   *Geo
	RadiusKM float64
}

// Resolved reports whether the AOI has a usable center point.
func (a AOI) Resolved() bool {
	return a.Center != nil
}

// FilteredEvent is an Event plus its great-circle distance from an AOI
// center. Constructed per query, never persisted.
type FilteredEvent struct {
	Event
	DistanceKM float64 `json:"distance_km"`
}

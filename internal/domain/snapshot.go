package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// SourceCounts holds one feed's raw fetched count and its in-AOI count.
type SourceCounts struct {
	Total int `json:"total"`
	InAOI int `json:"in_aoi"`
}

// AOIDescriptor is the snapshot's serialized view of the area of interest:
// the original query text, the resolved center (null when geocoding found
// nothing), and the radius.
type AOIDescriptor struct {
	Query    string   `json:"query"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	RadiusKM float64  `json:"radius_km"`
}

// Snapshot is the per-query situational summary: when it was generated, the
// requested look-back window, the AOI, and per-source counts. Built once per
// query cycle and read-only thereafter.
type Snapshot struct {
	ID          string                  `json:"id"`
	GeneratedAt time.Time               `json:"generated_at_utc"`
	HoursBack   int                     `json:"hours_back"`
	AOI         AOIDescriptor           `json:"aoi"`
	Counts      map[Source]SourceCounts `json:"counts"`
}

// BuildSnapshot combines per-source totals and filtered counts with the AOI
// descriptor. Every known source appears in Counts even when absent from the
// inputs; an unresolved AOI reports zero in-AOI counts rather than omitting
// them. Purely combinatorial — no counting logic beyond structuring.
func BuildSnapshot(id string, totals, filtered map[Source]int, aoi AOI, hoursBack int, clk clockwork.Clock) Snapshot {
	counts := make(map[Source]SourceCounts, len(AllSources))
	for _, src := range AllSources {
		c := SourceCounts{Total: totals[src]}
		if aoi.Resolved() {
			c.InAOI = filtered[src]
		}
		counts[src] = c
	}

	desc := AOIDescriptor{Query: aoi.Query, RadiusKM: aoi.RadiusKM}
	if aoi.Resolved() {
		lat, lon := aoi.Center.Lat, aoi.Center.Lon
		desc.Lat = &lat
		desc.Lon = &lon
	}

	return Snapshot{
		ID:          id,
		GeneratedAt: clk.Now().UTC(),
		HoursBack:   hoursBack,
		AOI:         desc,
		Counts:      counts,
	}
}

package domain

import (
	"math"
	"sort"
)

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two WGS-84 points
// in kilometers.
func HaversineKM(a, b Geo) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FilterByAOI returns the events within the AOI radius, nearest first.
// Events without coordinates never match. The sort is stable, so events at
// equal distance keep their input order across repeated runs. Pure function;
// an unresolved AOI yields an empty result.
func FilterByAOI(events []Event, aoi AOI) []FilteredEvent {
	if !aoi.Resolved() {
		return nil
	}

	filtered := make([]FilteredEvent, 0, len(events))
	for _, e := range events {
		if !e.HasCoordinates() {
			continue
		}
		d := HaversineKM(*aoi.Center, *e.Geo)
		if d <= aoi.RadiusKM {
			filtered = append(filtered, FilteredEvent{Event: e, DistanceKM: d})
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DistanceKM < filtered[j].DistanceKM
	})
	return filtered
}

// SortNewestFirst orders events by ObservedAt descending, in place.
// The sort is stable so same-instant events keep their feed order.
func SortNewestFirst(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ObservedAt.After(events[j].ObservedAt)
	})
}

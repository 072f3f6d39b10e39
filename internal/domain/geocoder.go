package domain

import (
	"context"
	"errors"
)

// ErrNoResult is returned by a Geocoder when the upstream has no candidate
// for the query. Callers treat it as "AOI unresolved", not as a failure.
var ErrNoResult = errors.New("geocode: no result")

// Geocoder resolves a free-text place query to a single coordinate pair.
// Implementations must not retry or disambiguate among multiple candidates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Geo, error)
}

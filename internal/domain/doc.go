// Package domain models near-real-time hazard observations drawn from three
// public feeds, normalized into one canonical event shape.
//
// # Data Sources
//
// Seismic events come from the USGS earthquake summary feeds
// (https://earthquake.usgs.gov/earthquakes/feed/v1.0/). The feed is a GeoJSON
// feature collection; each feature's geometry carries a 3-element coordinate
// array ordered (longitude, latitude, depth-km). Adapters must preserve that
// axis order — swapping it is the classic bug with this feed. Feature times
// are epoch milliseconds; a missing time degrades to epoch zero rather than
// failing the batch.
//
// Multi-hazard bulletins come from the GDACS RSS feed
// (https://www.gdacs.org/xml/rss.xml). Publish times appear either as a
// dc:date (ISO 8601) or a plain pubDate; dc:date wins when both are present.
// Coordinates use the W3C geo namespace, with the longitude tag inconsistently
// named "long" or "lon" across items.
//
// Fire detections come from NASA FIRMS active-fire CSVs. Each row's instant
// is the acq_date column combined with acq_time, an HHMM value that may drop
// its leading zero ("934" means 09:34 UTC). Brightness is the bright_ti4
// column for VIIRS products and plain brightness for MODIS; confidence is
// categorical for VIIRS ("low"/"nominal"/"high") and numeric for MODIS, so it
// is carried as a string.
//
// # Time Semantics
//
// ObservedAt is always timezone-aware UTC. Adapters enforce the caller's
// look-back window at fetch time: an event older than now minus the window is
// never returned, with one documented exception — the seismic daily feed is a
// coarse window and is not locally re-filtered, so callers get "at most the
// feed's native window".
//
// # Coordinates
//
// Latitude and longitude are either both present (valid WGS84 degrees) or
// both absent, never half-set and never a sentinel value. Events without
// coordinates are excluded from distance filtering rather than matched at
// infinite distance.
package domain

package data

import "github.com/TomasB/geoiplite/internal/loader"

// RangeLookup implements CountryLookup over the tables cached by a
// loader.Coordinator.
type RangeLookup struct {
	coord *loader.Coordinator
}

// NewRangeLookup returns a lookup reading the coordinator's cache.
func NewRangeLookup(coord *loader.Coordinator) *RangeLookup {
	return &RangeLookup{coord: coord}
}

// LookupCountry resolves ip against the cached table of its family.
func (r *RangeLookup) LookupCountry(ip string) (string, error) {
	return r.coord.Lookup(ip)
}

// Close is a no-op; cached tables live as long as the coordinator.
func (r *RangeLookup) Close() error {
	return nil
}

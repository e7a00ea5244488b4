package data

import (
	"fmt"
	"net"
	"strings"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/loader"
	"github.com/oschwald/geoip2-golang"
)

// MmdbReader implements CountryLookup using a MaxMind MMDB file.
type MmdbReader struct {
	db *geoip2.Reader
}

// NewMmdbReader opens the MMDB file at the given path and returns a reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{db: db}, nil
}

// LookupCountry returns the lowercase ISO-3166 country code for ip.
func (r *MmdbReader) LookupCountry(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("%w: %q", ipaddr.ErrInvalidAddress, ip)
	}

	record, err := r.db.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("country lookup failed: %w", err)
	}
	if record.Country.IsoCode == "" {
		return "", loader.ErrNotFound
	}
	return strings.ToLower(record.Country.IsoCode), nil
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	return r.db.Close()
}

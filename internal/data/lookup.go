package data

// CountryLookup defines the interface for IP-to-country lookups.
type CountryLookup interface {
	// LookupCountry returns the lowercase ISO-3166 country code for the given
	// IP address text. Returns loader.ErrNotFound when no block holds the
	// address and an error wrapping ipaddr.ErrInvalidAddress when the text
	// cannot be converted.
	LookupCountry(ip string) (string, error)

	// Close releases any resources held by the lookup implementation.
	Close() error
}

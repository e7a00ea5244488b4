// Package ipaddr converts textual IP addresses into the numeric keys used
// by the range tables.
package ipaddr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidAddress is returned when an address cannot be converted to the
// key type of its family.
var ErrInvalidAddress = errors.New("invalid address")

// Family identifies an address class. Each family has its own key width
// and its own range table.
type Family int

const (
	V4 Family = iota
	V6
)

// Families lists every family in load order.
var Families = []Family{V4, V6}

// String returns "ipv4" or "ipv6".
func (f Family) String() string {
	switch f {
	case V4:
		return "ipv4"
	case V6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily returns V6 if ip contains a colon and V4 otherwise. The text
// is not validated.
func ParseFamily(ip string) Family {
	if strings.Contains(ip, ":") {
		return V6
	}
	return V4
}

// Key6 is a 128-bit address split into its high and low halves.
type Key6 struct {
	Hi uint64
	Lo uint64
}

// Compare returns -1, 0 or 1 comparing k with o, high half first.
func (k Key6) Compare(o Key6) int {
	switch {
	case k.Hi < o.Hi:
		return -1
	case k.Hi > o.Hi:
		return 1
	case k.Lo < o.Lo:
		return -1
	case k.Lo > o.Lo:
		return 1
	}
	return 0
}

// Addr converts the key back into an address.
func (k Key6) Addr() netip.Addr {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:], k.Lo)
	return netip.AddrFrom16(b)
}

func (k Key6) String() string {
	return k.Addr().String()
}

// ToKeyV4 converts dotted-quad text into its 32-bit key.
func ToKeyV4(ip string) (uint32, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, ip, err)
	}
	if !addr.Is4() {
		return 0, fmt.Errorf("%w: %q is not an ipv4 address", ErrInvalidAddress, ip)
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// ToKeyV6 converts colon-separated text into its 128-bit key. Zones are
// ignored; IPv4-mapped addresses keep their mapped 128-bit value.
func ToKeyV6(ip string) (Key6, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Key6{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, ip, err)
	}
	b := addr.WithZone("").As16()
	return Key6{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// V4String formats a 32-bit key as dotted-quad text.
func V4String(k uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], k)
	return netip.AddrFrom4(b).String()
}

package ranges

import (
	"cmp"

	"github.com/TomasB/geoiplite/internal/ipaddr"
)

// NotFound is returned by Search when no record contains the key.
const NotFound = -1

// Position is the result of comparing a key against one record.
type Position int

const (
	// After means the key lies past the record's last address.
	After Position = -1
	// Contained means the record holds the key.
	Contained Position = 0
	// Before means the key lies ahead of the record's start address.
	Before Position = 1
)

// Comparator decides where key lies relative to r.
type Comparator[K Key] func(r Record[K], key K) Position

// CompareV4 is the comparator for ipv4 records.
func CompareV4(r Record[uint32], key uint32) Position {
	return position(r, key, cmp.Compare[uint32])
}

// CompareV6 is the comparator for ipv6 records. Without an end address the
// record only holds its start.
func CompareV6(r Record[ipaddr.Key6], key ipaddr.Key6) Position {
	return position(r, key, ipaddr.Key6.Compare)
}

func position[K Key](r Record[K], key K, order func(a, b K) int) Position {
	if order(key, r.Start) < 0 {
		return Before
	}
	if order(key, r.Last()) > 0 {
		return After
	}
	return Contained
}

// Search returns the index of the record containing key, or NotFound.
// records must be sorted by start and must not overlap; this is not checked.
func Search[K Key](records []Record[K], key K, compare Comparator[K]) int {
	low, high := 0, len(records)
	for low < high {
		mid := int(uint(low+high) >> 1)
		switch compare(records[mid], key) {
		case Contained:
			return mid
		case After:
			low = mid + 1
		default:
			high = mid
		}
	}
	return NotFound
}

// Package ranges holds the sorted, non-overlapping country range tables
// and the binary search over them.
package ranges

import (
	"cmp"
	"fmt"

	"github.com/TomasB/geoiplite/internal/ipaddr"
)

// Key is the numeric address key of a family.
type Key interface {
	uint32 | ipaddr.Key6
}

// Record maps the addresses [Start, End] to a country. A nil End means the
// record covers Start only.
type Record[K Key] struct {
	Country string
	Start   K
	End     *K
}

// Last returns the final address covered by the record.
func (r Record[K]) Last() K {
	if r.End != nil {
		return *r.End
	}
	return r.Start
}

func (r Record[K]) clone() Record[K] {
	if r.End != nil {
		end := *r.End
		r.End = &end
	}
	return r
}

// Table is an immutable range table for one family.
type Table[K Key] struct {
	family  ipaddr.Family
	records []Record[K]
	compare Comparator[K]
	order   func(a, b K) int
}

// NewV4Table builds an ipv4 table from records already in ascending order.
func NewV4Table(records []Record[uint32]) *Table[uint32] {
	return newTable(ipaddr.V4, records, CompareV4, cmp.Compare[uint32])
}

// NewV6Table builds an ipv6 table from records already in ascending order.
func NewV6Table(records []Record[ipaddr.Key6]) *Table[ipaddr.Key6] {
	return newTable(ipaddr.V6, records, CompareV6, ipaddr.Key6.Compare)
}

func newTable[K Key](family ipaddr.Family, records []Record[K], compare Comparator[K], order func(a, b K) int) *Table[K] {
	t := &Table[K]{
		family:  family,
		records: make([]Record[K], len(records)),
		compare: compare,
		order:   order,
	}
	for i, r := range records {
		t.records[i] = r.clone()
	}
	return t
}

// Family returns the address family of the table.
func (t *Table[K]) Family() ipaddr.Family { return t.family }

// Len returns the number of records.
func (t *Table[K]) Len() int { return len(t.records) }

// At returns a copy of record i.
func (t *Table[K]) At(i int) Record[K] { return t.records[i].clone() }

// Records returns a copy of all records in order.
func (t *Table[K]) Records() []Record[K] {
	out := make([]Record[K], len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// Find returns the index of the record containing key, or NotFound.
func (t *Table[K]) Find(key K) int {
	return Search(t.records, key, t.compare)
}

// Country returns the country of the record containing key.
func (t *Table[K]) Country(key K) (string, bool) {
	i := t.Find(key)
	if i == NotFound {
		return "", false
	}
	return t.records[i].Country, true
}

// Validate reports the first record that breaks ascending, non-overlapping
// order or ends before it starts.
func (t *Table[K]) Validate() error {
	for i, r := range t.records {
		if t.order(r.Last(), r.Start) < 0 {
			return &DataFormatError{Family: t.family, Index: i, Err: fmt.Errorf("end %v before start %v", r.Last(), r.Start)}
		}
		if i > 0 {
			prev := t.records[i-1]
			if t.order(r.Start, prev.Last()) <= 0 {
				return &DataFormatError{Family: t.family, Index: i, Err: fmt.Errorf("start %v overlaps or precedes record %d", r.Start, i-1)}
			}
		}
	}
	return nil
}

package ranges

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/goccy/go-json"
)

// FileName returns the data file name of a family inside the data directory.
func FileName(f ipaddr.Family) string {
	return "country-" + f.String() + ".json"
}

// DataFormatError reports a data file whose content is not a valid table.
// Index is -1 when the error is not tied to a single record.
type DataFormatError struct {
	Family ipaddr.Family
	Index  int
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed %s data: %v", e.Family, e.Err)
	}
	return fmt.Sprintf("malformed %s data: record %d: %v", e.Family, e.Index, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

var (
	errNoCountry = errors.New(`missing country "c"`)
	errNoStart   = errors.New(`missing start "s"`)
	errEndBefore = errors.New("end before start")
	errNotArray  = errors.New("top-level value is not an array")
)

// On-disk element shapes. Pointers and slices distinguish absent fields.
type wireV4 struct {
	C *string `json:"c"`
	S *uint32 `json:"s"`
	E *uint32 `json:"e,omitempty"`
}

type wireV6 struct {
	C *string  `json:"c"`
	S []uint64 `json:"s"`
	E []uint64 `json:"e,omitempty"`
}

// decodeArray reads the whole of r as one JSON array. Trailing data and a
// top-level null are rejected. Read failures are returned unwrapped so the
// caller can tell them from malformed content.
func decodeArray[T any](family ipaddr.Family, r io.Reader) ([]T, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", family, err)
	}

	var elems []T
	if err := json.Unmarshal(buf, &elems); err != nil {
		return nil, &DataFormatError{Family: family, Index: -1, Err: err}
	}
	if elems == nil {
		return nil, &DataFormatError{Family: family, Index: -1, Err: errNotArray}
	}
	return elems, nil
}

// DecodeV4 reads an ipv4 data file.
func DecodeV4(r io.Reader) (*Table[uint32], error) {
	elems, err := decodeArray[wireV4](ipaddr.V4, r)
	if err != nil {
		return nil, err
	}

	records := make([]Record[uint32], 0, len(elems))
	for i, el := range elems {
		if el.C == nil || *el.C == "" {
			return nil, &DataFormatError{Family: ipaddr.V4, Index: i, Err: errNoCountry}
		}
		if el.S == nil {
			return nil, &DataFormatError{Family: ipaddr.V4, Index: i, Err: errNoStart}
		}
		if el.E != nil && *el.E < *el.S {
			return nil, &DataFormatError{Family: ipaddr.V4, Index: i, Err: errEndBefore}
		}
		records = append(records, Record[uint32]{Country: *el.C, Start: *el.S, End: el.E})
	}
	return NewV4Table(records), nil
}

// DecodeV6 reads an ipv6 data file.
func DecodeV6(r io.Reader) (*Table[ipaddr.Key6], error) {
	elems, err := decodeArray[wireV6](ipaddr.V6, r)
	if err != nil {
		return nil, err
	}

	records := make([]Record[ipaddr.Key6], 0, len(elems))
	for i, el := range elems {
		if el.C == nil || *el.C == "" {
			return nil, &DataFormatError{Family: ipaddr.V6, Index: i, Err: errNoCountry}
		}
		if el.S == nil {
			return nil, &DataFormatError{Family: ipaddr.V6, Index: i, Err: errNoStart}
		}
		start, err := key6(el.S)
		if err != nil {
			return nil, &DataFormatError{Family: ipaddr.V6, Index: i, Err: fmt.Errorf("start: %w", err)}
		}
		rec := Record[ipaddr.Key6]{Country: *el.C, Start: start}
		if el.E != nil {
			end, err := key6(el.E)
			if err != nil {
				return nil, &DataFormatError{Family: ipaddr.V6, Index: i, Err: fmt.Errorf("end: %w", err)}
			}
			if end.Compare(start) < 0 {
				return nil, &DataFormatError{Family: ipaddr.V6, Index: i, Err: errEndBefore}
			}
			rec.End = &end
		}
		records = append(records, rec)
	}
	return NewV6Table(records), nil
}

func key6(pair []uint64) (ipaddr.Key6, error) {
	if len(pair) != 2 {
		return ipaddr.Key6{}, fmt.Errorf("want [high, low], got %d elements", len(pair))
	}
	return ipaddr.Key6{Hi: pair[0], Lo: pair[1]}, nil
}

// Encode writes t in the data file format.
func Encode[K Key](w io.Writer, t *Table[K]) error {
	var elems any
	switch tt := any(t).(type) {
	case *Table[uint32]:
		out := make([]wireV4, len(tt.records))
		for i, r := range tt.records {
			out[i] = wireV4{C: &r.Country, S: &r.Start, E: r.End}
		}
		elems = out
	case *Table[ipaddr.Key6]:
		out := make([]wireV6, len(tt.records))
		for i, r := range tt.records {
			out[i] = wireV6{C: &r.Country, S: []uint64{r.Start.Hi, r.Start.Lo}}
			if r.End != nil {
				out[i].E = []uint64{r.End.Hi, r.End.Lo}
			}
		}
		elems = out
	}
	return json.NewEncoder(w).Encode(elems)
}

// WriteFile encodes t into the file name of its family inside dir.
func WriteFile[K Key](dir string, t *Table[K]) (err error) {
	f, err := os.Create(filepath.Join(dir, FileName(t.Family())))
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := Encode(w, t); err != nil {
		return fmt.Errorf("failed to encode %s data: %w", t.Family(), err)
	}
	return w.Flush()
}

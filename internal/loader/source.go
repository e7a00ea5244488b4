package loader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/ranges"
)

// Source opens the serialized table of a family.
type Source interface {
	Open(f ipaddr.Family) (io.ReadCloser, error)
}

// DirSource reads country-ipv4.json and country-ipv6.json from Dir.
type DirSource struct {
	Dir string
}

// Path returns the data file path of a family.
func (s DirSource) Path(f ipaddr.Family) string {
	return filepath.Join(s.Dir, ranges.FileName(f))
}

// Open opens the data file of a family.
func (s DirSource) Open(f ipaddr.Family) (io.ReadCloser, error) {
	return os.Open(s.Path(f))
}

package loader

import (
	"errors"
	"fmt"

	"github.com/TomasB/geoiplite/internal/ipaddr"
)

var (
	// ErrNotLoaded is matched by errors.Is for every *NotLoadedError.
	ErrNotLoaded = errors.New("data has not been loaded")
	// ErrNotFound means no range of the family's table holds the address.
	ErrNotFound = errors.New("address not found")
	// ErrIO wraps failures to open or read a data file.
	ErrIO = errors.New("data file unreadable")
)

// NotLoadedError is returned by lookups for a family without a table.
type NotLoadedError struct {
	Family ipaddr.Family
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("data (%s) has not been loaded", e.Family)
}

func (e *NotLoadedError) Is(target error) bool {
	return target == ErrNotLoaded
}

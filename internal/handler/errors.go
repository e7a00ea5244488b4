// Package handler maps lookup errors onto transport status codes shared by
// the HTTP and gRPC handlers.
package handler

import (
	"errors"
	"net/http"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/loader"
	"google.golang.org/grpc/codes"
)

// HTTPStatus returns the response status for a lookup error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ipaddr.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the status code for a lookup error.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, ipaddr.ErrInvalidAddress):
		return codes.InvalidArgument
	case errors.Is(err, loader.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, loader.ErrNotLoaded):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

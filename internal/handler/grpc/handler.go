package grpc

import (
	"context"
	"errors"

	"github.com/TomasB/geoiplite/internal/data"
	"github.com/TomasB/geoiplite/internal/handler"
	"github.com/TomasB/geoiplite/internal/handler/check"
	"github.com/TomasB/geoiplite/internal/loader"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Handler implements CountryServiceServer.
type Handler struct {
	lookup data.CountryLookup
}

// NewHandler creates a new gRPC handler with the given CountryLookup.
func NewHandler(lookup data.CountryLookup) *Handler {
	return &Handler{lookup: lookup}
}

// Lookup returns the country code of the address in req.
func (h *Handler) Lookup(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}

	country, err := h.lookup.LookupCountry(req.GetValue())
	if err != nil {
		return nil, status.Error(handler.GRPCCode(err), err.Error())
	}
	return wrapperspb.String(country), nil
}

// Check validates whether an IP is allowed for the given country list.
func (h *Handler) Check(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	fields := req.GetFields()

	ip := fields["ip"].GetStringValue()
	if ip == "" {
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}

	var allowed []string
	for _, v := range fields["allowed_countries"].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			allowed = append(allowed, s)
		}
	}
	if len(allowed) == 0 {
		return nil, status.Error(codes.InvalidArgument, "allowed_countries is required")
	}

	country, err := h.lookup.LookupCountry(ip)
	if err != nil && !errors.Is(err, loader.ErrNotFound) {
		code := handler.GRPCCode(err)
		if code == codes.InvalidArgument {
			return nil, status.Error(code, "invalid IP address")
		}
		return nil, status.Error(code, "lookup failed")
	}

	return structpb.NewStruct(map[string]any{
		"allowed": check.Allowed(country, allowed),
		"country": country,
	})
}

package grpc

import (
	"context"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "geoiplite.v1.CountryService"

const (
	lookupMethod = "/" + ServiceName + "/Lookup"
	checkMethod  = "/" + ServiceName + "/Check"
)

// CountryServiceServer is the server API of the country service. Messages
// are protobuf well-known types:
//
//	Lookup(StringValue ip) returns (StringValue country)
//	Check(Struct{ip, allowed_countries}) returns (Struct{allowed, country})
type CountryServiceServer interface {
	Lookup(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the country service for grpc.Server.RegisterService.
var ServiceDesc = ggrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CountryServiceServer)(nil),
	Methods: []ggrpc.MethodDesc{
		{MethodName: "Lookup", Handler: lookupHandler},
		{MethodName: "Check", Handler: checkHandler},
	},
	Streams:  []ggrpc.StreamDesc{},
	Metadata: "geoiplite/v1/country.proto",
}

// Register attaches srv to s.
func Register(s ggrpc.ServiceRegistrar, srv CountryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CountryServiceServer).Lookup(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: lookupMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CountryServiceServer).Lookup(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CountryServiceServer).Check(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: checkMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CountryServiceServer).Check(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the country service over conn.
type Client struct {
	conn ggrpc.ClientConnInterface
}

// NewClient returns a client using conn.
func NewClient(conn ggrpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Lookup returns the country code of ip.
func (c *Client) Lookup(ctx context.Context, ip string, opts ...ggrpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, lookupMethod, wrapperspb.String(ip), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Check reports whether ip resolves to one of allowed.
func (c *Client) Check(ctx context.Context, ip string, allowed []string, opts ...ggrpc.CallOption) (bool, string, error) {
	list := make([]any, len(allowed))
	for i, a := range allowed {
		list[i] = a
	}
	in, err := structpb.NewStruct(map[string]any{"ip": ip, "allowed_countries": list})
	if err != nil {
		return false, "", err
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, checkMethod, in, out, opts...); err != nil {
		return false, "", err
	}
	fields := out.GetFields()
	return fields["allowed"].GetBoolValue(), fields["country"].GetStringValue(), nil
}

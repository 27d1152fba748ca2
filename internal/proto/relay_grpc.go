// Package proto describes the relay's gRPC services. Messages are well-known
// protobuf types, so the descriptors are written by hand instead of being
// generated from a .proto file.
//
// Relay.Connect carries google.protobuf.Struct frames of the form
// {"event": string, "data": object} in both directions.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	RelayServiceName = "cipherrelay.v1.Relay"
	AdminServiceName = "cipherrelay.v1.Admin"

	Relay_Connect_FullMethodName = "/" + RelayServiceName + "/Connect"
	Admin_Stats_FullMethodName   = "/" + AdminServiceName + "/Stats"
)

type (
	RelayConnectServer = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]
	RelayConnectClient = grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]
)

// RelayServer is implemented by the relay endpoint.
type RelayServer interface {
	Connect(RelayConnectServer) error
}

// AdminServer is implemented by the operator endpoint.
type AdminServer interface {
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&Relay_ServiceDesc, srv)
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&Admin_ServiceDesc, srv)
}

func _Relay_Connect_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(RelayServer).Connect(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

func _Admin_Stats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Admin_Stats_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var Relay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: RelayServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _Relay_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "cipherrelay/v1/relay.proto",
}

var Admin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Stats",
			Handler:    _Admin_Stats_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cipherrelay/v1/relay.proto",
}

// NewRelayConnectClient opens a Connect stream on cc.
func NewRelayConnectClient(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (RelayConnectClient, error) {
	stream, err := cc.NewStream(ctx, &Relay_ServiceDesc.Streams[0], Relay_Connect_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

// AdminStats calls Admin.Stats on cc.
func AdminStats(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, Admin_Stats_FullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package ingest

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// IngestServiceServer is the interface a gRPC server registers against;
// Server implements it. Written by hand in the shape protoc-gen-go-grpc
// would emit from a one-RPC service definition, since the wire messages
// here are google.protobuf.Struct/ListValue rather than a project-specific
// generated package.
type IngestServiceServer interface {
	Send(context.Context, *structpb.ListValue) (*emptypb.Empty, error)
}

// RegisterIngestServiceServer registers srv against s the same way
// generated code would call <Service>_ServiceDesc.
func RegisterIngestServiceServer(s grpc.ServiceRegistrar, srv IngestServiceServer) {
	s.RegisterService(&ingestServiceDesc, srv)
}

func _IngestService_Send_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServiceServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/metricsink.ingest.v1.IngestService/Send",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngestServiceServer).Send(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

var ingestServiceDesc = grpc.ServiceDesc{
	ServiceName: "metricsink.ingest.v1.IngestService",
	HandlerType: (*IngestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Send",
			Handler:    _IngestService_Send_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/ingest/ingest.go",
}

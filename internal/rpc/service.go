// Package rpc defines the gridrun.v1.RecordService gRPC service. Messages are
// google.protobuf.Struct values so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gridrun.v1.RecordService"

const (
	AddRecordMethod   = "/" + ServiceName + "/AddRecord"
	ListRecordsMethod = "/" + ServiceName + "/ListRecords"
	DropTableMethod   = "/" + ServiceName + "/DropTable"
)

// RecordServer is the server API for RecordService.
//
// AddRecord takes {"table": string, "record": [[name, value], ...]} and
// returns {"id": number}. ListRecords takes {"table": string} and returns
// {"columns": [...], "rows": [[...], ...]}. DropTable takes {"table": string}.
type RecordServer interface {
	AddRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DropTable(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedRecordServer returns Unimplemented for every method.
type UnimplementedRecordServer struct{}

func (UnimplementedRecordServer) AddRecord(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddRecord not implemented")
}

func (UnimplementedRecordServer) ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}

func (UnimplementedRecordServer) DropTable(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DropTable not implemented")
}

// RegisterRecordServer registers srv on s.
func RegisterRecordServer(s grpc.ServiceRegistrar, srv RecordServer) {
	s.RegisterService(&RecordServiceDesc, srv)
}

var RecordServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddRecord", Handler: addRecordHandler},
		{MethodName: "ListRecords", Handler: listRecordsHandler},
		{MethodName: "DropTable", Handler: dropTableHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gridrun/v1/record_service.proto",
}

func addRecordHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecordServer).AddRecord(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AddRecordMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecordServer).AddRecord(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listRecordsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecordServer).ListRecords(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListRecordsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecordServer).ListRecords(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func dropTableHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecordServer).DropTable(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DropTableMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecordServer).DropTable(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

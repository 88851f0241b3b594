package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// RecordClient calls RecordService.
type RecordClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordClient(cc grpc.ClientConnInterface) *RecordClient {
	return &RecordClient{cc: cc}
}

func tableRequest(table string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"table": structpb.NewStringValue(table),
	}}
}

// AddRecord appends rec to table on the server and returns the row id.
func (c *RecordClient) AddRecord(ctx context.Context, table string, rec *record.Record, opts ...grpc.CallOption) (int64, error) {
	fields, err := EncodeRecord(rec)
	if err != nil {
		return 0, err
	}
	req := tableRequest(table)
	req.Fields["record"] = structpb.NewListValue(fields)

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AddRecordMethod, req, out, opts...); err != nil {
		return 0, err
	}
	return int64(out.GetFields()["id"].GetNumberValue()), nil
}

// ListRecords returns every row of table.
func (c *RecordClient) ListRecords(ctx context.Context, table string, opts ...grpc.CallOption) (*frame.Frame, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListRecordsMethod, tableRequest(table), out, opts...); err != nil {
		return nil, err
	}
	return DecodeFrame(out)
}

// DropTable removes table on the server.
func (c *RecordClient) DropTable(ctx context.Context, table string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, DropTableMethod, tableRequest(table), new(emptypb.Empty), opts...)
}

package gridd

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/gridrun/internal/rpc"
	"github.com/GoSim-25-26J-441/gridrun/internal/sink"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

// RecordGRPCServer implements rpc.RecordServer on top of a Store, so that
// workers on other hosts can append to the same tables.
type RecordGRPCServer struct {
	rpc.UnimplementedRecordServer
	store *store.Store
	now   func() time.Time
}

func NewRecordGRPCServer(st *store.Store) *RecordGRPCServer {
	return &RecordGRPCServer{store: st, now: time.Now}
}

// AddRecord stamps the record with its creation time and appends it.
func (s *RecordGRPCServer) AddRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	table, err := rpc.TableName(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	fields := req.GetFields()["record"].GetListValue()
	if fields == nil {
		return nil, status.Error(codes.InvalidArgument, "record is required")
	}
	rec, err := rpc.DecodeRecord(fields)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec.Set(sink.CreatedOnField, s.now().UTC())

	id, err := s.store.Insert(table, rec)
	if err != nil {
		return nil, storeStatus(err)
	}
	logger.Debug("record added", "table", table, "id", id)
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewNumberValue(float64(id)),
	}}, nil
}

// ListRecords returns every row of a table.
func (s *RecordGRPCServer) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	table, err := rpc.TableName(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := store.CheckTableName(table); err != nil {
		return nil, storeStatus(err)
	}
	// a table nobody has written to yet reads as empty
	f, err := s.store.Frame(table)
	if err != nil {
		return nil, storeStatus(err)
	}
	out, err := rpc.EncodeFrame(f)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *RecordGRPCServer) DropTable(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	table, err := rpc.TableName(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.store.Drop(table); err != nil {
		return nil, storeStatus(err)
	}
	logger.Info("table dropped", "table", table)
	return &emptypb.Empty{}, nil
}

func storeStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTable), errors.Is(err, store.ErrReservedField),
		errors.Is(err, store.ErrDuplicateField), errors.Is(err, store.ErrIntegerOverflow):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

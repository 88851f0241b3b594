package sink

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/gridrun/internal/rpc"
	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

const defaultCallTimeout = 30 * time.Second

// Remote writes records to a table served by gridd over gRPC. The server
// stamps created_on.
type Remote struct {
	client  *rpc.RecordClient
	table   string
	timeout time.Duration
}

// NewRemote binds a sink to table on the server behind cc, dropping the table
// first when overwrite is set.
func NewRemote(ctx context.Context, cc grpc.ClientConnInterface, table string, overwrite bool) (*Remote, error) {
	r := &Remote{client: rpc.NewRecordClient(cc), table: table, timeout: defaultCallTimeout}
	if overwrite {
		logger.Warn("dropping remote table", "table", table)
		if err := r.client.DropTable(ctx, table); err != nil {
			return nil, fmt.Errorf("drop remote table %s: %w", table, err)
		}
	} else {
		logger.Warn("appending to remote table", "table", table)
	}
	return r, nil
}

func (r *Remote) AddRecord(rec *record.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, err := r.client.AddRecord(ctx, r.table, rec)
	return err
}

func (r *Remote) Frame() (*frame.Frame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.ListRecords(ctx, r.table)
}

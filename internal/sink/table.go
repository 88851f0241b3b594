package sink

import (
	"time"

	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// CreatedOnField is stamped on every record written to a persistent table.
const CreatedOnField = "created_on"

// Table writes records to a table of a SQLite store.
type Table struct {
	store *store.Store
	name  string
	now   func() time.Time
}

// NewTable binds a sink to table name. With overwrite the table is dropped
// first; otherwise new records are appended to whatever it holds.
func NewTable(st *store.Store, name string, overwrite bool) (*Table, error) {
	if overwrite {
		logger.Warn("dropping table", "table", name)
		if err := st.Drop(name); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("appending to table", "table", name)
	}
	return &Table{store: st, name: name, now: time.Now}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// AddRecord inserts rec with a created_on timestamp.
func (t *Table) AddRecord(rec *record.Record) error {
	row := rec.Clone()
	row.Set(CreatedOnField, t.now())
	_, err := t.store.Insert(t.name, row)
	return err
}

// Frame returns the table's rows ordered by id.
func (t *Table) Frame() (*frame.Frame, error) {
	return t.store.Frame(t.name)
}

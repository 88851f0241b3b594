// Package sink provides the destinations experiment results are written to.
package sink

import (
	"sync"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// Sink accepts result records and returns everything it has collected as a
// frame.
type Sink interface {
	AddRecord(rec *record.Record) error
	Frame() (*frame.Frame, error)
}

// Memory keeps records in process. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []*record.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

// AddRecord stores a copy of rec.
func (m *Memory) AddRecord(rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec.Clone())
	return nil
}

// Records returns copies of the stored records in insertion order.
func (m *Memory) Records() []*record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*record.Record, len(m.records))
	for i, r := range m.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Frame() (*frame.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return frame.FromRecords(m.records), nil
}

package pipeline

import (
	"sync/atomic"
)

// Metrics contains per-pipeline counters.
type Metrics struct {
	Name string

	// Packet counters (using atomic for thread-safety)
	Received    atomic.Uint64
	Filtered    atomic.Uint64
	Dissected   atomic.Uint64
	Written     atomic.Uint64
	ReadErrors  atomic.Uint64
	WriteErrors atomic.Uint64
	Drops       atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(name string) *Metrics {
	return &Metrics{Name: name}
}

// Stats represents pipeline statistics.
type Stats struct {
	Received    uint64
	Filtered    uint64
	Dissected   uint64
	Written     uint64
	ReadErrors  uint64
	WriteErrors uint64
	Drops       uint64
}

func (m *Metrics) snapshot() Stats {
	return Stats{
		Received:    m.Received.Load(),
		Filtered:    m.Filtered.Load(),
		Dissected:   m.Dissected.Load(),
		Written:     m.Written.Load(),
		ReadErrors:  m.ReadErrors.Load(),
		WriteErrors: m.WriteErrors.Load(),
		Drops:       m.Drops.Load(),
	}
}

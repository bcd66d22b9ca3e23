package proxy

import "sync/atomic"

// StatsVersioner is a monotonic counter bumped whenever observable
// structure changes (slot map refresh, route map publish, pool
// membership). Consumers snapshot it with Version() to detect change
// without taking a lock, the spec's C10.
type StatsVersioner struct {
	version int64
}

func NewStatsVersioner() *StatsVersioner {
	return &StatsVersioner{}
}

// Bump increments the version and returns the new value.
func (sv *StatsVersioner) Bump() int64 {
	return atomic.AddInt64(&sv.version, 1)
}

// Version returns the current version without blocking any writer.
func (sv *StatsVersioner) Version() int64 {
	return atomic.LoadInt64(&sv.version)
}

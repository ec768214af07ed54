package metrics

import "time"

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordOrderCreated(string)                                  {}
func (Nop) RecordUseCaseExecution(string, bool, time.Duration)         {}
func (Nop) RecordCommit(string)                                        {}
func (Nop) RecordNotification(string, string)                          {}
func (Nop) ObserveHTTPRequestDuration(string, string, string, float64) {}
func (Nop) ObserveGRPCRequestDuration(string, string, string, float64) {}
func (Nop) IncIdempotencyHit(string)                                   {}
func (Nop) IncIdempotencyMiss(string)                                  {}
func (Nop) IncEventsConsumed(string)                                   {}

var _ Metrics = Nop{}

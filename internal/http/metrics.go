package http

import (
	"context"
	"sync/atomic"
	"time"

	"feedesk/internal/messages"
	"feedesk/internal/view"
)

// Metrics counts write outcomes across every session. It is installed as
// the controllers' Notifier, so counts survive session eviction.
type Metrics struct {
	started time.Time

	addSucceeded    int64
	addFailed       int64
	updateSucceeded int64
	updateFailed    int64
}

// NewMetrics starts the uptime clock.
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

// Notify implements view.Notifier.
func (m *Metrics) Notify(_ context.Context, n view.Notification) {
	switch n.Outcome {
	case messages.AddSuccess:
		atomic.AddInt64(&m.addSucceeded, 1)
	case messages.AddFailure:
		atomic.AddInt64(&m.addFailed, 1)
	case messages.UpdateSuccess:
		atomic.AddInt64(&m.updateSucceeded, 1)
	case messages.UpdateFailure:
		atomic.AddInt64(&m.updateFailed, 1)
	}
}

// SubmissionCounts is a point-in-time copy of the outcome counters.
type SubmissionCounts struct {
	AddSucceeded    int64
	AddFailed       int64
	UpdateSucceeded int64
	UpdateFailed    int64
}

// Submissions returns the outcome counters.
func (m *Metrics) Submissions() SubmissionCounts {
	return SubmissionCounts{
		AddSucceeded:    atomic.LoadInt64(&m.addSucceeded),
		AddFailed:       atomic.LoadInt64(&m.addFailed),
		UpdateSucceeded: atomic.LoadInt64(&m.updateSucceeded),
		UpdateFailed:    atomic.LoadInt64(&m.updateFailed),
	}
}

// Uptime returns the time since NewMetrics.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

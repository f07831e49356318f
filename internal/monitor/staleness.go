package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// StalenessMonitor periodically scans the full ticket collection and
// emits an overdue event for every non-terminal ticket older than the
// threshold. It never mutates ticket state; escalation is purely a
// notification concern handled downstream, where the dedup invariant
// caps delivery at once per (recipient, ticket).
type StalenessMonitor struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	period     time.Duration
	threshold  time.Duration
	clock      func() time.Time
}

// Dependencies bundles collaborators for the monitor. Clock is optional
// and defaults to time.Now.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewStalenessMonitor constructs the monitor with the given scan cadence
// and breach threshold.
func NewStalenessMonitor(deps Dependencies, period, threshold time.Duration) *StalenessMonitor {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &StalenessMonitor{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		period:     period,
		threshold:  threshold,
		clock:      clock,
	}
}

// Handle controls a running monitor.
type Handle struct {
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop cancels future ticks and waits for the loop to exit. Idempotent;
// a tick already in flight runs to completion before Stop returns.
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.quit) })
	<-h.done
}

// Start launches the recurring scan and returns its handle.
func (m *StalenessMonitor) Start() *Handle {
	h := &Handle{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go m.run(h)
	m.logger.Info("staleness monitor started",
		zap.Duration("period", m.period),
		zap.Duration("threshold", m.threshold))
	return h
}

func (m *StalenessMonitor) run(h *Handle) {
	defer close(h.done)
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			// Cancellation wins when both channels are ready.
			select {
			case <-h.quit:
				return
			default:
			}
			m.Scan(context.Background())
		}
	}
}

// Scan performs one full pass over the current tickets.
func (m *StalenessMonitor) Scan(ctx context.Context) {
	now := m.clock()
	tickets, err := m.tickets.List(ctx)
	if err != nil {
		m.logger.Warn("staleness scan failed", zap.Error(err))
		return
	}
	m.metrics.RecordScan()

	for _, ticket := range tickets {
		if ticket.Status.Terminal() {
			continue
		}
		age := now.Sub(ticket.CreatedAt)
		if age <= m.threshold {
			continue
		}
		m.metrics.RecordOverdue()
		_ = m.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketOverdue,
			TicketID:  ticket.ID,
			Timestamp: now,
			Payload: events.TicketOverduePayload{
				Title:      ticket.Title,
				AssigneeID: ticket.AssigneeID,
				OpenFor:    age,
			},
		})
	}
}

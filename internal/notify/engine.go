package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// Engine owns the per-user notification log. It never returns errors:
// duplicates, unknown recipients and store failures are no-ops, since a
// missed or suppressed alert is preferable to failing the writer of
// ticket state.
type Engine struct {
	store   repository.NotificationStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewEngine constructs the engine over a notification store.
func NewEngine(store repository.NotificationStore, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{store: store, logger: logger, metrics: metrics}
}

// Raise inserts a notification at the head of the recipient's log
// unless one already exists for the same (recipient, ticket, title)
// triple, read or not. Returns whether a new notification was recorded.
func (e *Engine) Raise(ctx context.Context, recipientID, title, message, ticketID string, kind domain.NotificationKind) bool {
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		TicketID:    ticketID,
		Kind:        kind,
		CreatedAt:   time.Now(),
	}

	inserted, err := e.store.Insert(ctx, n)
	if err != nil {
		e.logger.Warn("notification insert failed",
			zap.String("recipient_id", recipientID),
			zap.String("ticket_id", ticketID),
			zap.String("title", title),
			zap.Error(err))
		return false
	}
	if !inserted {
		e.metrics.RecordSuppressed()
		e.logger.Debug("duplicate notification suppressed",
			zap.String("recipient_id", recipientID),
			zap.String("ticket_id", ticketID),
			zap.String("title", title))
		return false
	}
	e.metrics.RecordRaise(kind)
	return true
}

// MarkRead sets the read flag of the matching notification. Idempotent;
// unknown ids are a safe no-op.
func (e *Engine) MarkRead(ctx context.Context, id string) {
	if err := e.store.MarkRead(ctx, id); err != nil {
		e.logger.Warn("mark read failed", zap.String("notification_id", id), zap.Error(err))
	}
}

// ForRecipient returns the recipient's notifications, newest first.
func (e *Engine) ForRecipient(ctx context.Context, recipientID string) []domain.Notification {
	list, err := e.store.ListByRecipient(ctx, recipientID)
	if err != nil {
		e.logger.Warn("notification listing failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil
	}
	return list
}

// UnreadCount returns the number of unread notifications for a recipient.
func (e *Engine) UnreadCount(ctx context.Context, recipientID string) int {
	count := 0
	for _, n := range e.ForRecipient(ctx, recipientID) {
		if !n.Read {
			count++
		}
	}
	return count
}

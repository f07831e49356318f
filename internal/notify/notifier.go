package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// Alert titles raised by the staleness escalation. Fixed per (recipient,
// ticket) pair so the dedup invariant caps each at one delivery.
// Lifecycle titles are built per event instead: the dedup key is
// (recipient, ticket, title), so a fixed title would swallow every
// repeat of the same event class on one ticket.
const (
	TitleLateAction    = "Late Action Alert"
	TitleDelayedAction = "URGENT: Delayed Action"

	titleNewTicket = "New Ticket"
	titleAssigned  = "Ticket Assigned"
)

// Notifier subscribes to domain events and fans them out into
// per-recipient notifications through the engine.
type Notifier struct {
	engine *Engine
	users  repository.UserDirectory
	logger *zap.Logger
}

// NewNotifier creates the fan-out subscriber.
func NewNotifier(engine *Engine, users repository.UserDirectory, logger *zap.Logger) *Notifier {
	return &Notifier{engine: engine, users: users, logger: logger}
}

// RegisterHandlers subscribes to all notifying event types.
func (n *Notifier) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	dispatcher.Subscribe(events.EventTicketOverdue, n.handleTicketOverdue)
}

// handleTicketCreated announces the new ticket to every ADMIN.
func (n *Notifier) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	kind := domain.KindInfo
	if payload.Priority == domain.TicketPriorityUrgent {
		kind = domain.KindUrgent
	}
	message := fmt.Sprintf("Ticket %s created: %s", event.TicketID, payload.Title)
	return n.eachAdmin(ctx, func(admin domain.User) {
		n.engine.Raise(ctx, admin.ID, titleNewTicket, message, event.TicketID, kind)
	})
}

// handleTicketStatusChanged reports the new status to the creator. The
// title carries the status, so every transition on a ticket reaches the
// creator; only a re-announcement of the same status collapses.
func (n *Notifier) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	title := fmt.Sprintf("Ticket Status: %s", payload.NewStatus)
	message := fmt.Sprintf("Ticket %s is now %s", event.TicketID, payload.NewStatus)
	n.engine.Raise(ctx, payload.CreatorID, title, message, event.TicketID, domain.KindSuccess)
	return nil
}

// handleTicketAssigned alerts the newly assigned PIC.
func (n *Notifier) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("You have been assigned ticket %s", event.TicketID)
	n.engine.Raise(ctx, payload.AssigneeID, titleAssigned, message, event.TicketID, domain.KindWarning)
	return nil
}

// handleCommentAdded notifies the other side of the conversation: the
// assignee when the creator wrote, otherwise the creator. Nobody is
// notified when the computed recipient is absent.
func (n *Notifier) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return nil
	}
	var recipientID string
	if payload.AuthorID == payload.CreatorID {
		if payload.AssigneeID == nil {
			return nil
		}
		recipientID = *payload.AssigneeID
	} else {
		recipientID = payload.CreatorID
	}
	// The comment id in the title keeps each comment's notification
	// distinct under the dedup key.
	title := fmt.Sprintf("New Comment %s", payload.CommentID)
	message := fmt.Sprintf("New comment on ticket %s: %s", event.TicketID, payload.BodyPreview)
	n.engine.Raise(ctx, recipientID, title, message, event.TicketID, domain.KindInfo)
	return nil
}

// handleTicketOverdue escalates an SLA breach to every ADMIN and, when
// assigned, to the responsible PIC. The dedup invariant guarantees each
// recipient sees each alert at most once per ticket, however many scan
// cycles re-detect it.
func (n *Notifier) handleTicketOverdue(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketOverduePayload)
	if !ok {
		return nil
	}
	days := int(payload.OpenFor.Hours() / 24)
	adminMessage := fmt.Sprintf("Ticket %s (%q) has had no resolution for %d days", event.TicketID, payload.Title, days)
	err := n.eachAdmin(ctx, func(admin domain.User) {
		n.engine.Raise(ctx, admin.ID, TitleLateAction, adminMessage, event.TicketID, domain.KindUrgent)
	})
	if payload.AssigneeID != nil {
		message := fmt.Sprintf("Ticket %s assigned to you is overdue: no resolution for %d days", event.TicketID, days)
		n.engine.Raise(ctx, *payload.AssigneeID, TitleDelayedAction, message, event.TicketID, domain.KindUrgent)
	}
	return err
}

func (n *Notifier) eachAdmin(ctx context.Context, raise func(domain.User)) error {
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		n.logger.Warn("admin lookup failed", zap.Error(err))
		return err
	}
	for _, admin := range admins {
		raise(admin)
	}
	return nil
}

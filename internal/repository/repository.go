package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// TicketRepository owns the authoritative ticket and comment
// collections. No business logic beyond field consistency; all
// operations are synchronous, total over their preconditions, and never
// implicitly retried.
type TicketRepository interface {
	// Create appends a new ticket. Validation error on duplicate id,
	// missing required fields, or enum values outside the closed sets.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateStatus mutates the matching ticket in place and refreshes
	// its update timestamp. Not-found error on unknown id.
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	// Assign sets the assignee and refreshes the update timestamp.
	// Not-found error on unknown id; validation error when the
	// assignee's role is not PIC.
	Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error)
	// AddComment appends to the comment log. Not-found error when the
	// owning ticket does not exist.
	AddComment(ctx context.Context, comment *domain.Comment) error

	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// List returns the full collection, newest first.
	List(ctx context.Context) ([]domain.Ticket, error)
	// CommentsByTicket returns a ticket's thread in creation order.
	CommentsByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

// UserDirectory is the read model for identities. Users are immutable
// within the core.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// NotificationStore persists per-recipient notification logs. The
// dedup check-and-insert is atomic inside the store.
type NotificationStore interface {
	// Insert records the notification at the head of the recipient's
	// log unless one already exists for the same (recipient, ticket,
	// title) triple. Returns false when the insert was suppressed.
	Insert(ctx context.Context, n *domain.Notification) (bool, error)
	// MarkRead flips the read flag. No-op on unknown or already-read ids.
	MarkRead(ctx context.Context, id string) error
	// ListByRecipient returns the recipient's log, newest first.
	ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error)
}

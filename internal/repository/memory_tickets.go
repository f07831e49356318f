package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// memoryTicketRepository is the reference in-process implementation.
// One mutex serializes every mutation and read; callers always receive
// copies, so reads behave as consistent snapshots.
type memoryTicketRepository struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	order    []string // newest first
	comments map[string][]domain.Comment
	users    UserDirectory
	clock    func() time.Time
}

// NewMemoryTicketRepository builds the in-memory repository. The user
// directory backs the assignee role check.
func NewMemoryTicketRepository(users UserDirectory) TicketRepository {
	return &memoryTicketRepository{
		tickets:  make(map[string]*domain.Ticket),
		comments: make(map[string][]domain.Comment),
		users:    users,
		clock:    time.Now,
	}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil {
		return util.NewValidationError("ticket required", nil)
	}
	if strings.TrimSpace(ticket.ID) == "" || strings.TrimSpace(ticket.Title) == "" || strings.TrimSpace(ticket.CreatorID) == "" {
		return util.NewValidationError("ticket id, title and creator are required", nil)
	}
	if !ticket.Status.Valid() {
		return util.NewValidationError("unknown ticket status", map[string]any{"status": ticket.Status})
	}
	if !ticket.Priority.Valid() {
		return util.NewValidationError("unknown ticket priority", map[string]any{"priority": ticket.Priority})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return util.NewValidationError("ticket id already exists", map[string]any{"ticket_id": ticket.ID})
	}
	now := r.clock()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = ticket.CreatedAt
	stored := cloneTicket(ticket)
	r.tickets[ticket.ID] = stored
	r.order = append([]string{ticket.ID}, r.order...)
	return nil
}

func (r *memoryTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, util.NewValidationError("unknown ticket status", map[string]any{"status": status})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	ticket.Status = status
	ticket.UpdatedAt = r.clock()
	return cloneTicket(ticket), nil
}

func (r *memoryTicketRepository) Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error) {
	assignee, err := r.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.Role != domain.RolePIC {
		return nil, util.NewValidationError("assignee is not a PIC", map[string]any{
			"assignee_id": assigneeID,
			"role":        assignee.Role,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	ticket.AssigneeID = &assignee.ID
	ticket.UpdatedAt = r.clock()
	return cloneTicket(ticket), nil
}

func (r *memoryTicketRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	if comment == nil || strings.TrimSpace(comment.TicketID) == "" {
		return util.NewValidationError("comment with owning ticket required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[comment.TicketID]; !ok {
		return util.NewNotFound("ticket", map[string]any{"ticket_id": comment.TicketID})
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.clock()
	}
	r.comments[comment.TicketID] = append(r.comments[comment.TicketID], *comment)
	return nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return cloneTicket(ticket), nil
}

func (r *memoryTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *cloneTicket(r.tickets[id]))
	}
	return result, nil
}

func (r *memoryTicketRepository) CommentsByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticketID]; !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return append([]domain.Comment{}, r.comments[ticketID]...), nil
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		clone.AssigneeID = &id
	}
	clone.Attachments = append([]string(nil), t.Attachments...)
	return &clone
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/access"
	"github.com/spec-kit/helpdesk-core/internal/assist"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/notify"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// LifecycleService translates user intents into repository mutations
// plus the resulting notification fan-out. Repository failures propagate
// to the caller unmodified; notification raising is a best-effort side
// effect that never fails the enclosing operation.
type LifecycleService struct {
	tickets    repository.TicketRepository
	users      repository.UserDirectory
	engine     *notify.Engine
	dispatcher events.Dispatcher
	assistant  *assist.Assistant
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	Users      repository.UserDirectory
	Engine     *notify.Engine
	Dispatcher events.Dispatcher
	Assistant  *assist.Assistant
	Logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		users:      deps.Users,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		assistant:  deps.Assistant,
		logger:     deps.Logger,
	}
}

// TicketCreateInput describes ticket creation payload. ID is optional;
// a stable key is generated when absent. Category and Priority are
// optional; the classifier boundary fills missing fields.
type TicketCreateInput struct {
	ID          string
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	Attachments []string
}

// CreateTicket files a new ticket for a client. Status is forced to
// OPEN, and every ADMIN is notified: urgent when the priority is
// URGENT, info otherwise.
func (s *LifecycleService) CreateTicket(ctx context.Context, creatorID string, input TicketCreateInput) (*domain.Ticket, error) {
	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.Role != domain.RoleClient {
		return nil, util.NewValidationError("only clients create tickets", map[string]any{"role": creator.Role})
	}

	category := strings.TrimSpace(input.Category)
	priority := input.Priority
	if category == "" || priority == "" {
		verdict := s.assistant.Classify(ctx, input.Title, input.Description, input.Attachments)
		if category == "" {
			category = verdict.Category
		}
		if priority == "" {
			priority = verdict.Priority
		}
	}

	ticket := &domain.Ticket{
		ID:          input.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		CreatorID:   creator.ID,
		Attachments: input.Attachments,
	}
	if ticket.ID == "" {
		ticket.ID = generateTicketKey()
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Priority:  ticket.Priority,
			CreatorID: ticket.CreatorID,
		},
	})
	return ticket, nil
}

// UpdateStatus moves a ticket to a new status on behalf of an ADMIN or
// PIC actor and reports the change to the creator.
func (s *LifecycleService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, actorID string) (*domain.Ticket, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RolePIC:
	default:
		return nil, util.NewValidationError("clients cannot change ticket status", map[string]any{"role": actor.Role})
	}

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canTransition(current.Status, status) {
		return nil, util.NewValidationError("status transition rejected", map[string]any{
			"from": current.Status,
			"to":   status,
		})
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, status)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
			CreatorID: updated.CreatorID,
		},
	})
	return updated, nil
}

// AssignTicket hands a ticket to a PIC on behalf of an ADMIN actor and
// warns the new assignee.
func (s *LifecycleService) AssignTicket(ctx context.Context, ticketID, assigneeID, actorID string) (*domain.Ticket, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		return nil, util.NewValidationError("only admins assign tickets", map[string]any{"role": actor.Role})
	}

	updated, err := s.tickets.Assign(ctx, ticketID, assigneeID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			AssigneeID: assigneeID,
		},
	})
	return updated, nil
}

// PostComment appends to a ticket thread and notifies the other side of
// the conversation; nobody is notified when the ticket has no assignee
// and the author is the creator.
func (s *LifecycleService) PostComment(ctx context.Context, ticketID, authorID, body string, attachments []string) (*domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:          generateCommentKey(),
		TicketID:    ticket.ID,
		AuthorID:    author.ID,
		Body:        strings.TrimSpace(body),
		Attachments: attachments,
	}
	if err := s.tickets.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    author.ID,
			CreatorID:   ticket.CreatorID,
			AssigneeID:  ticket.AssigneeID,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// ListVisibleTickets returns the tickets the requester may see under
// the role-based visibility rules.
func (s *LifecycleService) ListVisibleTickets(ctx context.Context, requesterID string) ([]domain.Ticket, error) {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	return access.Visible(*requester, all), nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *LifecycleService) ListNotifications(ctx context.Context, recipientID string) []domain.Notification {
	return s.engine.ForRecipient(ctx, recipientID)
}

// MarkNotificationRead acknowledges a notification. Safe on unknown ids.
func (s *LifecycleService) MarkNotificationRead(ctx context.Context, id string) {
	s.engine.MarkRead(ctx, id)
}

// UnreadNotifications returns the recipient's unread count.
func (s *LifecycleService) UnreadNotifications(ctx context.Context, recipientID string) int {
	return s.engine.UnreadCount(ctx, recipientID)
}

// Summarize produces an ephemeral conversation summary via the assist
// boundary. Stored ticket state is never affected.
func (s *LifecycleService) Summarize(ctx context.Context, ticketID string) (string, error) {
	ticket, comments, err := s.thread(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return s.assistant.Summarize(ctx, *ticket, comments), nil
}

// SuggestReply drafts a response for the PIC via the assist boundary.
// The caller posts it as a comment explicitly if wanted.
func (s *LifecycleService) SuggestReply(ctx context.Context, ticketID string) (string, error) {
	ticket, comments, err := s.thread(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return s.assistant.SuggestReply(ctx, *ticket, comments), nil
}

func (s *LifecycleService) thread(ctx context.Context, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.tickets.CommentsByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, comments, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// canTransition is the single seam for a status transition graph. The
// observed product behavior permits any status to move to any other, so
// it accepts everything until product requirements dictate otherwise.
func canTransition(from, to domain.TicketStatus) bool {
	_, _ = from, to
	return true
}

func generateTicketKey() string {
	return "T-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func generateCommentKey() string {
	return "c-" + strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// stringPreview truncates on rune boundaries so a multi-byte character
// at the cut never produces invalid UTF-8.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

const pgUniqueViolation = "23505"

// pgTicketRepository is the Postgres-backed adapter. Per-statement
// atomicity preserves the single-writer contract of the core.
type pgTicketRepository struct {
	pool  *pgxpool.Pool
	users UserDirectory
}

// NewPostgresTicketRepository instantiates the repository. The user
// directory backs the assignee role check.
func NewPostgresTicketRepository(pool *pgxpool.Pool, users UserDirectory) TicketRepository {
	return &pgTicketRepository{pool: pool, users: users}
}

func (r *pgTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil || ticket.ID == "" || ticket.Title == "" || ticket.CreatorID == "" {
		return util.NewValidationError("ticket id, title and creator are required", nil)
	}
	if !ticket.Status.Valid() {
		return util.NewValidationError("unknown ticket status", map[string]any{"status": ticket.Status})
	}
	if !ticket.Priority.Valid() {
		return util.NewValidationError("unknown ticket priority", map[string]any{"priority": ticket.Priority})
	}

	const query = `
        INSERT INTO tickets (id, title, description, status, priority, category, creator_id, assignee_id, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.Attachments,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return util.NewValidationError("ticket id already exists", map[string]any{"ticket_id": ticket.ID})
	}
	return util.MapError(err)
}

func (r *pgTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, util.NewValidationError("unknown ticket status", map[string]any{"status": status})
	}

	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return nil, util.MapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return r.GetByID(ctx, id)
}

func (r *pgTicketRepository) Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error) {
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

	const query = `UPDATE tickets SET assignee_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, assigneeID, id)
	if err != nil {
		return nil, util.MapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return r.GetByID(ctx, id)
}

func (r *pgTicketRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	if _, err := r.GetByID(ctx, comment.TicketID); err != nil {
		return err
	}
	const query = `
        INSERT INTO comments (id, ticket_id, author_id, body, attachments, is_assist)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		comment.ID,
		comment.TicketID,
		comment.AuthorID,
		comment.Body,
		comment.Attachments,
		comment.IsAssist,
	).Scan(&comment.CreatedAt)
	return util.MapError(err)
}

func (r *pgTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, priority, category, creator_id, assignee_id, attachments, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.Attachments,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	if err != nil {
		return nil, util.MapError(err)
	}
	return &ticket, nil
}

func (r *pgTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, priority, category, creator_id, assignee_id, attachments, created_at, updated_at
        FROM tickets ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Category,
			&ticket.CreatorID,
			&ticket.AssigneeID,
			&ticket.Attachments,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, util.MapError(err)
		}
		result = append(result, ticket)
	}
	return result, util.MapError(rows.Err())
}

func (r *pgTicketRepository) CommentsByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if _, err := r.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	const query = `
        SELECT id, ticket_id, author_id, body, attachments, is_assist, created_at
        FROM comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Body,
			&comment.Attachments,
			&comment.IsAssist,
			&comment.CreatedAt,
		); err != nil {
			return nil, util.MapError(err)
		}
		result = append(result, comment)
	}
	return result, util.MapError(rows.Err())
}

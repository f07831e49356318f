package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

type pgUserDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresUserDirectory returns a Postgres-backed identity read model.
func NewPostgresUserDirectory(pool *pgxpool.Pool) UserDirectory {
	return &pgUserDirectory{pool: pool}
}

func (d *pgUserDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, role, COALESCE(phone, ''), COALESCE(avatar, '')
        FROM users WHERE id=$1`
	var user domain.User
	err := d.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Phone,
		&user.Avatar,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("user", map[string]any{"user_id": id})
	}
	if err != nil {
		return nil, util.MapError(err)
	}
	return &user, nil
}

func (d *pgUserDirectory) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	const query = `
        SELECT id, name, email, role, COALESCE(phone, ''), COALESCE(avatar, '')
        FROM users WHERE role=$1 ORDER BY name ASC`
	rows, err := d.pool.Query(ctx, query, role)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.Phone,
			&user.Avatar,
		); err != nil {
			return nil, util.MapError(err)
		}
		result = append(result, user)
	}
	return result, util.MapError(rows.Err())
}

package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// memoryUserDirectory serves a fixed identity set. Users never change
// within the scope of the core, so no lock is needed after construction.
type memoryUserDirectory struct {
	byID  map[string]domain.User
	order []string
}

// NewMemoryUserDirectory builds a directory over the given users.
func NewMemoryUserDirectory(users []domain.User) UserDirectory {
	dir := &memoryUserDirectory{byID: make(map[string]domain.User, len(users))}
	for _, u := range users {
		if _, exists := dir.byID[u.ID]; exists {
			continue
		}
		dir.byID[u.ID] = u
		dir.order = append(dir.order, u.ID)
	}
	return dir
}

func (d *memoryUserDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := d.byID[id]
	if !ok {
		return nil, util.NewNotFound("user", map[string]any{"user_id": id})
	}
	return &user, nil
}

func (d *memoryUserDirectory) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	for _, id := range d.order {
		if user := d.byID[id]; user.Role == role {
			result = append(result, user)
		}
	}
	return result, nil
}

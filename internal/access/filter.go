package access

import "github.com/spec-kit/helpdesk-core/internal/domain"

// Visible maps (requester, ticket collection) to the subset the
// requester may see: ADMIN sees everything, a PIC sees assigned work, a
// CLIENT sees own tickets. Pure, no side effects, total over any input.
func Visible(requester domain.User, tickets []domain.Ticket) []domain.Ticket {
	switch requester.Role {
	case domain.RoleAdmin:
		return append([]domain.Ticket{}, tickets...)
	case domain.RolePIC:
		return filter(tickets, func(t domain.Ticket) bool {
			return t.AssigneeID != nil && *t.AssigneeID == requester.ID
		})
	case domain.RoleClient:
		return filter(tickets, func(t domain.Ticket) bool {
			return t.CreatorID == requester.ID
		})
	}
	return []domain.Ticket{}
}

func filter(tickets []domain.Ticket, keep func(domain.Ticket) bool) []domain.Ticket {
	result := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if keep(t) {
			result = append(result, t)
		}
	}
	return result
}

// Package assist is the boundary to the remote AI collaborator. Every
// remote capability is isolated behind one function that catches all
// failures and returns the documented default; collaborator errors
// never propagate into lifecycle or monitor logic.
package assist

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// Fallback values returned when the remote call fails or times out.
const (
	FallbackSummary = "Could not generate summary at this time."
	FallbackReply   = "I recommend looking into the reported issue further before responding."
)

// Classification is the remote classifier's verdict.
type Classification struct {
	Category string
	Priority domain.TicketPriority
}

// Client is the remote AI collaborator contract. Implementations may
// fail or time out; the Assistant absorbs that.
type Client interface {
	Classify(ctx context.Context, title, description string, attachments []string) (Classification, error)
	Summarize(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) (string, error)
	SuggestReply(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) (string, error)
}

// Assistant applies the documented fallbacks around a Client. A nil
// client means the collaborator is not configured and every call
// degrades to its fallback immediately.
type Assistant struct {
	client Client
	logger *zap.Logger
}

// NewAssistant wraps the client with fallback handling.
func NewAssistant(client Client, logger *zap.Logger) *Assistant {
	return &Assistant{client: client, logger: logger}
}

// Classify returns the remote verdict, falling back to category "Other"
// and MEDIUM priority. A verdict outside the closed sets is also
// replaced, field by field.
func (a *Assistant) Classify(ctx context.Context, title, description string, attachments []string) Classification {
	fallback := Classification{Category: domain.CategoryOther, Priority: domain.TicketPriorityMedium}
	if a.client == nil {
		return fallback
	}
	verdict, err := a.client.Classify(ctx, title, description, attachments)
	if err != nil {
		a.logger.Warn("classification degraded to fallback", zap.Error(util.NewCollaboratorError(err)))
		return fallback
	}
	if verdict.Category == "" {
		verdict.Category = domain.CategoryOther
	}
	if !verdict.Priority.Valid() {
		verdict.Priority = domain.TicketPriorityMedium
	}
	return verdict
}

// Summarize returns a conversation summary, falling back to a fixed
// placeholder. The output is ephemeral and never stored.
func (a *Assistant) Summarize(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) string {
	if a.client == nil {
		return FallbackSummary
	}
	text, err := a.client.Summarize(ctx, ticket, comments)
	if err != nil || text == "" {
		if err != nil {
			a.logger.Warn("summarization degraded to fallback", zap.Error(util.NewCollaboratorError(err)))
		}
		return FallbackSummary
	}
	return text
}

// SuggestReply returns a drafted response for the PIC, falling back to
// a fixed placeholder. The output is ephemeral; posting it as a comment
// is an explicit follow-up action by the requester.
func (a *Assistant) SuggestReply(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) string {
	if a.client == nil {
		return FallbackReply
	}
	text, err := a.client.SuggestReply(ctx, ticket, comments)
	if err != nil || text == "" {
		if err != nil {
			a.logger.Warn("reply suggestion degraded to fallback", zap.Error(util.NewCollaboratorError(err)))
		}
		return FallbackReply
	}
	return text
}

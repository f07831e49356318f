package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/assist"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/monitor"
	"github.com/spec-kit/helpdesk-core/internal/notify"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// stubClassifier scripts the remote classifier; the other assist calls
// are unused by lifecycle tests.
type stubClassifier struct {
	verdict assist.Classification
	err     error
}

func (s *stubClassifier) Classify(context.Context, string, string, []string) (assist.Classification, error) {
	return s.verdict, s.err
}

func (s *stubClassifier) Summarize(context.Context, domain.Ticket, []domain.Comment) (string, error) {
	return "", nil
}

func (s *stubClassifier) SuggestReply(context.Context, domain.Ticket, []domain.Comment) (string, error) {
	return "", nil
}

type fixture struct {
	service    *LifecycleService
	engine     *notify.Engine
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

func newFixture(t *testing.T, client assist.Client) *fixture {
	t.Helper()
	logger := zap.NewNop()
	users := repository.NewMemoryUserDirectory([]domain.User{
		{ID: "a1", Name: "Alice", Email: "alice@admin.com", Role: domain.RoleAdmin},
		{ID: "a2", Name: "Amir", Email: "amir@admin.com", Role: domain.RoleAdmin},
		{ID: "p1", Name: "Bob", Email: "bob@pic.com", Role: domain.RolePIC},
		{ID: "c1", Name: "Charlie", Email: "charlie@client.com", Role: domain.RoleClient},
	})
	tickets := repository.NewMemoryTicketRepository(users)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	engine := notify.NewEngine(repository.NewMemoryNotificationStore(), logger, metrics)
	notify.NewNotifier(engine, users, logger).RegisterHandlers(dispatcher)

	service := NewLifecycleService(LifecycleDependencies{
		TicketRepo: tickets,
		Users:      users,
		Engine:     engine,
		Dispatcher: dispatcher,
		Assistant:  assist.NewAssistant(client, logger),
		Logger:     logger,
	})
	return &fixture{service: service, engine: engine, tickets: tickets, dispatcher: dispatcher, metrics: metrics}
}

func (f *fixture) titled(ctx context.Context, recipientID, title string) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.engine.ForRecipient(ctx, recipientID) {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}

func (f *fixture) titledPrefix(ctx context.Context, recipientID, prefix string) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.engine.ForRecipient(ctx, recipientID) {
		if strings.HasPrefix(n.Title, prefix) {
			out = append(out, n)
		}
	}
	return out
}

func TestCreateTicketRejectsNonClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	for _, actor := range []string{"a1", "p1"} {
		_, err := f.service.CreateTicket(ctx, actor, TicketCreateInput{Title: "x", Description: "y"})
		if !util.IsValidation(err) {
			t.Fatalf("actor %s: got %v, want validation error", actor, err)
		}
	}
}

func TestCreateTicketNotifiesEveryAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{
		Title:       "Server room too hot",
		Description: "AC is down.",
		Category:    "Hardware",
		Priority:    domain.TicketPriorityUrgent,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN", ticket.Status)
	}

	for _, admin := range []string{"a1", "a2"} {
		got := f.titled(ctx, admin, "New Ticket")
		if len(got) != 1 {
			t.Fatalf("admin %s: %d notifications, want 1", admin, len(got))
		}
		if got[0].Kind != domain.KindUrgent {
			t.Fatalf("admin %s: kind = %s, want urgent", admin, got[0].Kind)
		}
		if got[0].TicketID != ticket.ID {
			t.Fatalf("admin %s: ticket id = %s, want %s", admin, got[0].TicketID, ticket.ID)
		}
	}
	if got := f.engine.ForRecipient(ctx, "c1"); len(got) != 0 {
		t.Fatalf("creator received %d notifications, want 0", len(got))
	}
}

func TestCreateTicketNonUrgentIsInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	if _, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{
		Title:       "Mouse squeaks",
		Description: "Annoying.",
		Category:    "Hardware",
		Priority:    domain.TicketPriorityLow,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got := f.titled(ctx, "a1", "New Ticket")
	if len(got) != 1 || got[0].Kind != domain.KindInfo {
		t.Fatalf("got %v, want one info notification", got)
	}
}

func TestCreateTicketClassifierFillsBlanks(t *testing.T) {
	ctx := context.Background()

	t.Run("remote verdict", func(t *testing.T) {
		f := newFixture(t, &stubClassifier{verdict: assist.Classification{
			Category: "Bug",
			Priority: domain.TicketPriorityHigh,
		}})
		ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "Crash", Description: "App dies on save."})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if ticket.Category != "Bug" || ticket.Priority != domain.TicketPriorityHigh {
			t.Fatalf("got %s/%s, want Bug/HIGH", ticket.Category, ticket.Priority)
		}
	})

	t.Run("fallback without collaborator", func(t *testing.T) {
		f := newFixture(t, nil)
		ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "Crash", Description: "App dies on save."})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if ticket.Category != domain.CategoryOther || ticket.Priority != domain.TicketPriorityMedium {
			t.Fatalf("got %s/%s, want Other/MEDIUM", ticket.Category, ticket.Priority)
		}
	})

	t.Run("explicit fields win", func(t *testing.T) {
		f := newFixture(t, &stubClassifier{verdict: assist.Classification{
			Category: "Bug",
			Priority: domain.TicketPriorityHigh,
		}})
		ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{
			Title:       "Crash",
			Description: "App dies on save.",
			Category:    "Software",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if ticket.Category != "Software" {
			t.Fatalf("category = %s, want the caller's Software", ticket.Category)
		}
	})
}

func TestCreateTicketGeneratesKeyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(ticket.ID, "T-") || len(ticket.ID) != 10 {
		t.Fatalf("generated id %q does not match T-XXXXXXXX", ticket.ID)
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved, "c1"); !util.IsValidation(err) {
		t.Fatalf("client update: got %v, want validation error", err)
	}
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, "p1"); err != nil {
		t.Fatalf("pic update failed: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved, "a1"); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestUpdateStatusNotifiesCreator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved, "a1"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got := f.titled(ctx, "c1", "Ticket Status: RESOLVED")
	if len(got) != 1 {
		t.Fatalf("creator notifications = %d, want 1", len(got))
	}
	if got[0].Kind != domain.KindSuccess {
		t.Fatalf("kind = %s, want success", got[0].Kind)
	}
	if !strings.Contains(got[0].Message, "RESOLVED") {
		t.Fatalf("message %q does not carry the new status", got[0].Message)
	}
}

func TestAssignTicketAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := f.service.AssignTicket(ctx, ticket.ID, "p1", "p1"); !util.IsValidation(err) {
		t.Fatalf("pic assign: got %v, want validation error", err)
	}
	if _, err := f.service.AssignTicket(ctx, ticket.ID, "c1", "a1"); !util.IsValidation(err) {
		t.Fatalf("assign to client: got %v, want validation error", err)
	}

	updated, err := f.service.AssignTicket(ctx, ticket.ID, "p1", "a1")
	if err != nil {
		t.Fatalf("admin assign failed: %v", err)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != "p1" {
		t.Fatalf("assignee = %v, want p1", updated.AssigneeID)
	}

	got := f.titled(ctx, "p1", "Ticket Assigned")
	if len(got) != 1 || got[0].Kind != domain.KindWarning {
		t.Fatalf("got %v, want one warning notification", got)
	}
}

func TestPostCommentRouting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// No assignee yet: a creator comment notifies nobody.
	if _, err := f.service.PostComment(ctx, ticket.ID, "c1", "Any update?", nil); err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	if got := f.titledPrefix(ctx, "c1", "New Comment"); len(got) != 0 {
		t.Fatalf("creator self-notified: %v", got)
	}

	if _, err := f.service.AssignTicket(ctx, ticket.ID, "p1", "a1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	// Creator writes, assignee hears.
	if _, err := f.service.PostComment(ctx, ticket.ID, "c1", "Still broken.", nil); err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	if got := f.titledPrefix(ctx, "p1", "New Comment"); len(got) != 1 {
		t.Fatalf("assignee notifications = %d, want 1", len(got))
	}

	// Assignee writes, creator hears.
	if _, err := f.service.PostComment(ctx, ticket.ID, "p1", "Looking into it.", nil); err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	if got := f.titledPrefix(ctx, "c1", "New Comment"); len(got) != 1 {
		t.Fatalf("creator notifications = %d, want 1", len(got))
	}
}

// Every comment on a ticket notifies its counterpart; an earlier
// notification for the same ticket never swallows a later comment.
func TestRepeatedCommentsEachNotify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.AssignTicket(ctx, ticket.ID, "p1", "a1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	for _, body := range []string{"First report.", "Second report.", "Third report."} {
		if _, err := f.service.PostComment(ctx, ticket.ID, "c1", body, nil); err != nil {
			t.Fatalf("comment %q failed: %v", body, err)
		}
	}

	got := f.titledPrefix(ctx, "p1", "New Comment")
	if len(got) != 3 {
		t.Fatalf("assignee notifications = %d, want 3", len(got))
	}
	if !strings.Contains(got[0].Message, "Third report.") {
		t.Fatalf("newest notification %q does not carry the latest comment", got[0].Message)
	}
}

// Every status transition notifies the creator; moving through
// IN_PROGRESS must not swallow the later RESOLVED announcement.
func TestRepeatedStatusChangesEachNotify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, "a1"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved, "a1"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got := f.titledPrefix(ctx, "c1", "Ticket Status:")
	if len(got) != 2 {
		t.Fatalf("creator notifications = %d, want 2", len(got))
	}
	if !strings.Contains(got[0].Message, "RESOLVED") {
		t.Fatalf("newest message %q does not report RESOLVED", got[0].Message)
	}
	if !strings.Contains(got[1].Message, "IN_PROGRESS") {
		t.Fatalf("earlier message %q does not report IN_PROGRESS", got[1].Message)
	}
}

func TestListVisibleTickets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "one", Description: "d"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "two", Description: "d"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.AssignTicket(ctx, first.ID, "p1", "a1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	adminView, err := f.service.ListVisibleTickets(ctx, "a1")
	if err != nil || len(adminView) != 2 {
		t.Fatalf("admin view = %v (err %v), want both tickets", adminView, err)
	}
	picView, err := f.service.ListVisibleTickets(ctx, "p1")
	if err != nil || len(picView) != 1 || picView[0].ID != first.ID {
		t.Fatalf("pic view = %v (err %v), want only %s", picView, err, first.ID)
	}
	clientView, err := f.service.ListVisibleTickets(ctx, "c1")
	if err != nil || len(clientView) != 2 {
		t.Fatalf("client view = %v (err %v), want both tickets", clientView, err)
	}
}

func TestSummarizeAndSuggestReplyFallbacks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{Title: "x", Description: "y"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	summary, err := f.service.Summarize(ctx, ticket.ID)
	if err != nil || summary != assist.FallbackSummary {
		t.Fatalf("summary = %q (err %v), want fallback", summary, err)
	}
	reply, err := f.service.SuggestReply(ctx, ticket.ID)
	if err != nil || reply != assist.FallbackReply {
		t.Fatalf("reply = %q (err %v), want fallback", reply, err)
	}

	if _, err := f.service.Summarize(ctx, "T-404"); !util.IsNotFound(err) {
		t.Fatalf("unknown ticket: got %v, want not-found error", err)
	}
}

// TestFullLifecycleScenario walks one ticket from filing through
// escalation to resolution and checks every notification along the way.
func TestFullLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	now := time.Now()
	clock := now
	staleness := monitor.NewStalenessMonitor(monitor.Dependencies{
		TicketRepo: f.tickets,
		Dispatcher: f.dispatcher,
		Metrics:    f.metrics,
		Logger:     zap.NewNop(),
		Clock:      func() time.Time { return clock },
	}, time.Minute, 15*24*time.Hour)

	ticket, err := f.service.CreateTicket(ctx, "c1", TicketCreateInput{
		ID:          "T-2001",
		Title:       "VPN keeps dropping",
		Description: "Disconnects every few minutes.",
		Category:    "Network",
		Priority:    domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.AssignTicket(ctx, ticket.ID, "p1", "a1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := f.service.PostComment(ctx, ticket.ID, "p1", "Checking the gateway logs.", nil); err != nil {
		t.Fatalf("comment failed: %v", err)
	}

	// Sixteen days pass without resolution. Repeated scans escalate
	// exactly once per recipient.
	clock = ticket.CreatedAt.Add(16 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		staleness.Scan(ctx)
	}
	for _, admin := range []string{"a1", "a2"} {
		got := f.titled(ctx, admin, notify.TitleLateAction)
		if len(got) != 1 {
			t.Fatalf("admin %s: late action alerts = %d, want 1", admin, len(got))
		}
		if !strings.Contains(got[0].Message, "16 days") {
			t.Fatalf("admin %s: message %q does not carry the age", admin, got[0].Message)
		}
	}
	if got := f.titled(ctx, "p1", notify.TitleDelayedAction); len(got) != 1 {
		t.Fatalf("assignee delayed action alerts = %d, want 1", len(got))
	}

	// Resolution notifies the creator and stops further escalation.
	if _, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved, "p1"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	before := len(f.engine.ForRecipient(ctx, "a1")) + len(f.engine.ForRecipient(ctx, "a2")) + len(f.engine.ForRecipient(ctx, "p1"))
	staleness.Scan(ctx)
	after := len(f.engine.ForRecipient(ctx, "a1")) + len(f.engine.ForRecipient(ctx, "a2")) + len(f.engine.ForRecipient(ctx, "p1"))
	if before != after {
		t.Fatalf("resolved ticket still escalates: %d -> %d notifications", before, after)
	}

	status := f.titledPrefix(ctx, "c1", "Ticket Status:")
	if len(status) != 1 || !strings.Contains(status[0].Message, "RESOLVED") {
		t.Fatalf("creator status notifications = %v, want one RESOLVED message", status)
	}
}

func TestStringPreviewKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("日", 130)
	got := stringPreview(long, 120)
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 120 {
		t.Fatalf("preview length = %d runes, want 120", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("preview %q has no ellipsis", got)
	}

	short := "héllo wörld"
	if got := stringPreview(short, 120); got != short {
		t.Fatalf("short body altered: %q", got)
	}
}

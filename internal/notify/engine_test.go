package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

func newTestEngine() (*Engine, *observability.Metrics) {
	metrics := observability.NewMetrics()
	engine := NewEngine(repository.NewMemoryNotificationStore(), zap.NewNop(), metrics)
	return engine, metrics
}

func TestRaiseSuppressesRepeatedTriple(t *testing.T) {
	ctx := context.Background()
	engine, metrics := newTestEngine()

	if !engine.Raise(ctx, "u1", TitleLateAction, "overdue", "T-1", domain.KindUrgent) {
		t.Fatal("first raise was not recorded")
	}
	for i := 0; i < 4; i++ {
		if engine.Raise(ctx, "u1", TitleLateAction, "overdue again", "T-1", domain.KindUrgent) {
			t.Fatalf("repeat raise %d was recorded", i+2)
		}
	}

	list := engine.ForRecipient(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	if got := metrics.Suppressed(); got != 4 {
		t.Fatalf("suppressed = %d, want 4", got)
	}
}

func TestRaiseDistinguishesTripleComponents(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	cases := []struct {
		name      string
		recipient string
		title     string
		ticket    string
	}{
		{"base", "u1", TitleLateAction, "T-1"},
		{"other recipient", "u2", TitleLateAction, "T-1"},
		{"other title", "u1", TitleDelayedAction, "T-1"},
		{"other ticket", "u1", TitleLateAction, "T-2"},
	}
	for _, tc := range cases {
		if !engine.Raise(ctx, tc.recipient, tc.title, "m", tc.ticket, domain.KindInfo) {
			t.Fatalf("%s: raise was suppressed", tc.name)
		}
	}

	if got := len(engine.ForRecipient(ctx, "u1")); got != 3 {
		t.Fatalf("u1 notifications = %d, want 3", got)
	}
	if got := len(engine.ForRecipient(ctx, "u2")); got != 1 {
		t.Fatalf("u2 notifications = %d, want 1", got)
	}
}

func TestReadNotificationStillSuppresses(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	engine.Raise(ctx, "u1", TitleLateAction, "overdue", "T-1", domain.KindUrgent)
	list := engine.ForRecipient(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	engine.MarkRead(ctx, list[0].ID)

	if engine.Raise(ctx, "u1", TitleLateAction, "overdue", "T-1", domain.KindUrgent) {
		t.Fatal("raise after acknowledgement was recorded")
	}
	if got := len(engine.ForRecipient(ctx, "u1")); got != 1 {
		t.Fatalf("got %d notifications, want 1", got)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	engine.Raise(ctx, "u1", titleNewTicket, "created", "T-1", domain.KindInfo)
	id := engine.ForRecipient(ctx, "u1")[0].ID

	engine.MarkRead(ctx, id)
	engine.MarkRead(ctx, id)
	engine.MarkRead(ctx, "n-unknown")

	list := engine.ForRecipient(ctx, "u1")
	if !list[0].Read {
		t.Fatal("notification is still unread")
	}
	if got := engine.UnreadCount(ctx, "u1"); got != 0 {
		t.Fatalf("unread = %d, want 0", got)
	}
}

func TestForRecipientNewestFirst(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	engine.Raise(ctx, "u1", titleNewTicket, "created", "T-1", domain.KindInfo)
	engine.Raise(ctx, "u1", titleAssigned, "assigned", "T-1", domain.KindWarning)
	engine.Raise(ctx, "u1", "Ticket Status: RESOLVED", "resolved", "T-1", domain.KindSuccess)

	list := engine.ForRecipient(ctx, "u1")
	if len(list) != 3 {
		t.Fatalf("got %d notifications, want 3", len(list))
	}
	want := []string{"Ticket Status: RESOLVED", titleAssigned, titleNewTicket}
	for i, title := range want {
		if list[i].Title != title {
			t.Fatalf("list[%d].Title = %q, want %q", i, list[i].Title, title)
		}
	}
}

func TestUnreadCountTracksAcknowledgement(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	engine.Raise(ctx, "u1", titleNewTicket, "created", "T-1", domain.KindInfo)
	engine.Raise(ctx, "u1", "New Comment c-1", "commented", "T-1", domain.KindInfo)
	if got := engine.UnreadCount(ctx, "u1"); got != 2 {
		t.Fatalf("unread = %d, want 2", got)
	}

	engine.MarkRead(ctx, engine.ForRecipient(ctx, "u1")[0].ID)
	if got := engine.UnreadCount(ctx, "u1"); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}
}

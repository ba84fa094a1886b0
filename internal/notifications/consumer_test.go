package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
)

func newTestConsumer(t *testing.T) (*Consumer, *stubNotificationsRepo) {
	t.Helper()
	repo := newStubRepo()
	svc, err := NewService(repo, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	consumer := &Consumer{
		svc:  svc,
		logg: logger.New(logger.Options{ServiceName: "test"}),
	}
	return consumer, repo
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestHandleNotificationRequestedCreatesRow(t *testing.T) {
	consumer, repo := newTestConsumer(t)
	userID := uuid.New()
	data := mustMarshal(t, payloads.NotificationRequestedEvent{
		UserID: userID,
		Type:   enums.NotificationTypeWalletUpdate,
		Title:  "Wallet recharged",
	})

	if err := consumer.handle(context.Background(), enums.EventNotificationRequested, data, context.Background()); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.rows))
	}
	for _, row := range repo.rows {
		if row.UserID != userID {
			t.Fatalf("notification user = %s, want %s", row.UserID, userID)
		}
		if row.Type != enums.NotificationTypeWalletUpdate {
			t.Fatalf("notification type = %s, want wallet_update", row.Type)
		}
	}
}

func TestHandleBidOutbidTargetsPreviousLeader(t *testing.T) {
	consumer, repo := newTestConsumer(t)
	outbid := uuid.New()
	data := mustMarshal(t, payloads.BidOutbidEvent{
		ListingID:        uuid.New(),
		OutbidBidderID:   outbid,
		NewLeadingAmount: "55.00",
	})

	if err := consumer.handle(context.Background(), enums.EventBidOutbid, data, context.Background()); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.rows))
	}
	for _, row := range repo.rows {
		if row.UserID != outbid {
			t.Fatalf("notification user = %s, want outbid bidder %s", row.UserID, outbid)
		}
		if row.Type != enums.NotificationTypeBidOutbid {
			t.Fatalf("notification type = %s, want bid_outbid", row.Type)
		}
	}
}

func TestHandleSkipsUnknownEventTypes(t *testing.T) {
	consumer, repo := newTestConsumer(t)

	if err := consumer.handle(context.Background(), enums.EventOrderCreated, json.RawMessage(`{}`), context.Background()); err != nil {
		t.Fatalf("unknown events should be skipped, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.rows))
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	consumer, repo := newTestConsumer(t)

	err := consumer.handle(context.Background(), enums.EventBidOutbid, json.RawMessage(`{`), context.Background())
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.rows))
	}
}

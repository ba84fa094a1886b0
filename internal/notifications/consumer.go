package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/idempotency"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
)

const notificationConsumerName = "notification-worker"

// Consumer turns notification-topic events into in-app notification rows.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumerName, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventNotificationRequested:
		return c.handleRequested(ctx, data, logCtx)
	case enums.EventBidOutbid:
		return c.handleOutbid(ctx, data, logCtx)
	case enums.EventListingStatusChanged:
		return c.handleListingStatus(ctx, data, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handleRequested(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.NotificationRequestedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse notification_requested payload: %w", err)
	}

	if _, err := c.svc.Notify(ctx, NotifyInput{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Payload: payload,
	}); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithUserID(logCtx, payload.UserID.String()), "user notified")
	return nil
}

func (c *Consumer) handleOutbid(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.BidOutbidEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse bid_outbid payload: %w", err)
	}

	if _, err := c.svc.Notify(ctx, NotifyInput{
		UserID:  payload.OutbidBidderID,
		Type:    enums.NotificationTypeBidOutbid,
		Payload: payload,
	}); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithListingID(logCtx, payload.ListingID.String()), "outbid bidder notified")
	return nil
}

func (c *Consumer) handleListingStatus(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.ListingStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse listing_status_changed payload: %w", err)
	}

	if _, err := c.svc.Notify(ctx, NotifyInput{
		UserID:  payload.SellerID,
		Type:    enums.NotificationTypeOrderUpdate,
		Payload: payload,
	}); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithListingID(logCtx, payload.ListingID.String()), "seller notified of listing change")
	return nil
}

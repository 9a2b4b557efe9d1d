package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
	"github.com/thriftline/thriftline-backend/pkg/outbox/idempotency"
	"github.com/thriftline/thriftline-backend/pkg/outbox/payloads"
)

const marketplaceNotificationConsumer = "marketplace-notifications"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns them into in-app notifications.
type Consumer struct {
	repo         creator
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a marketplace notification consumer.
func NewConsumer(repo creator, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Attributes["event_type"], msg.Data, msg.ID)
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

func (c *Consumer) process(ctx context.Context, eventType string, data []byte, messageID string) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, marketplaceNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notifications, err := buildNotifications(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, marketplaceNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if len(notifications) == 0 {
		c.logg.Info(logCtx, "event does not produce notifications")
		return processResult{ack: true}
	}

	for _, notification := range notifications {
		if err := c.repo.Create(ctx, notification); err != nil {
			c.logg.Error(logCtx, "failed to store notification", err)
			_ = c.idempotency.Delete(ctx, marketplaceNotificationConsumer, eventID)
			return processResult{nack: true}
		}
	}

	c.logg.Info(logCtx, "notifications created")
	return processResult{ack: true}
}

func buildNotifications(eventType enums.OutboxEventType, data json.RawMessage) ([]*models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return orderCreatedNotifications(payload), nil
	case enums.EventOrderShipped:
		var payload payloads.OrderShippedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return orderShippedNotifications(payload), nil
	case enums.EventOrderReceived:
		var payload payloads.OrderReceivedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return orderReceivedNotifications(payload), nil
	case enums.EventRefundRequested:
		var payload payloads.RefundRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return refundRequestedNotifications(payload), nil
	case enums.EventRefundDecided:
		var payload payloads.RefundDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return refundDecidedNotifications(payload), nil
	case enums.EventDonationDecided:
		var payload payloads.DonationDecidedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return donationDecidedNotifications(payload), nil
	case enums.EventCartAdjusted:
		var payload payloads.CartAdjustedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return cartAdjustedNotifications(payload), nil
	default:
		return nil, nil
	}
}

func orderCreatedNotifications(payload payloads.OrderCreatedEvent) []*models.Notification {
	if payload.BuyerID == uuid.Nil {
		return nil
	}
	total := decimal.NewFromInt(int64(payload.TotalCents)).DivRound(decimal.NewFromInt(100), 2)
	message := fmt.Sprintf("Your order of %d item(s) for $%s was placed.", len(payload.OrderItemIDs), total.StringFixed(2))
	return []*models.Notification{{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.PaymentID)),
	}}
}

func orderShippedNotifications(payload payloads.OrderShippedEvent) []*models.Notification {
	if payload.BuyerID == uuid.Nil {
		return nil
	}
	return []*models.Notification{{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeOrderShipped,
		Title:   "Item shipped",
		Message: fmt.Sprintf("%s is on its way.", payload.ProductName),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.PaymentID)),
	}}
}

func orderReceivedNotifications(payload payloads.OrderReceivedEvent) []*models.Notification {
	if payload.SellerID == uuid.Nil {
		return nil
	}
	return []*models.Notification{{
		UserID:  payload.SellerID,
		Type:    enums.NotificationTypeOrderReceived,
		Title:   "Delivery confirmed",
		Message: fmt.Sprintf("The buyer confirmed delivery of %s.", payload.ProductName),
		Link:    stringPtr("/seller/orders"),
	}}
}

func refundRequestedNotifications(payload payloads.RefundRequestedEvent) []*models.Notification {
	if payload.SellerID == uuid.Nil {
		return nil
	}
	message := fmt.Sprintf("The buyer requested a refund for %s.", payload.ProductName)
	if payload.Reason != "" {
		message = fmt.Sprintf("The buyer requested a refund for %s. Reason: %s", payload.ProductName, payload.Reason)
	}
	return []*models.Notification{{
		UserID:  payload.SellerID,
		Type:    enums.NotificationTypeRefundRequested,
		Title:   "Refund requested",
		Message: message,
		Link:    stringPtr("/seller/orders"),
	}}
}

func refundDecidedNotifications(payload payloads.RefundDecidedEvent) []*models.Notification {
	if payload.BuyerID == uuid.Nil {
		return nil
	}
	title := "Refund rejected"
	message := fmt.Sprintf("Your refund request for %s was rejected.", payload.ProductName)
	if payload.Decision == enums.RefundStatusApproved {
		title = "Refund approved"
		message = fmt.Sprintf("Your refund request for %s was approved.", payload.ProductName)
	}
	return []*models.Notification{{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeRefundDecided,
		Title:   title,
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.PaymentID)),
	}}
}

func donationDecidedNotifications(payload payloads.DonationDecidedEvent) []*models.Notification {
	if payload.DonorID == uuid.Nil {
		return nil
	}
	title := "Donation rejected"
	message := fmt.Sprintf("Your donation %q was not accepted.", payload.Name)
	if payload.Decision == enums.DonationStatusApproved {
		title = "Donation approved"
		message = fmt.Sprintf("Your donation %q was accepted. We will reach out to arrange collection.", payload.Name)
	}
	return []*models.Notification{{
		UserID:  payload.DonorID,
		Type:    enums.NotificationTypeDonationDecided,
		Title:   title,
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/donations/%s", payload.DonationID)),
	}}
}

func cartAdjustedNotifications(payload payloads.CartAdjustedEvent) []*models.Notification {
	if payload.BuyerID == uuid.Nil {
		return nil
	}
	message := fmt.Sprintf("%s is no longer available and was removed from your cart.", payload.ProductName)
	if !payload.Removed {
		message = fmt.Sprintf("Only %d of %s remain, so your cart was adjusted from %d.",
			payload.NewQuantity, payload.ProductName, payload.OldQuantity)
	}
	return []*models.Notification{{
		UserID:  payload.BuyerID,
		Type:    enums.NotificationTypeCartAdjusted,
		Title:   "Cart updated",
		Message: message,
		Link:    stringPtr("/cart"),
	}}
}

func stringPtr(value string) *string {
	return &value
}

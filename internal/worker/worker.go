package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationSink is the slice of the store the worker writes to.
type NotificationSink interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// NotificationWorker consumes order lifecycle events and turns them into
// notification rows. Notifications are best effort: a failed insert is
// logged and the message is committed anyway, so a broken notification
// never blocks or replays an order event.
type NotificationWorker struct {
	consumer *broker.Consumer
	sink     NotificationSink
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, sink NotificationSink) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		sink:     sink,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	logger := util.GetLogger()
	logger.Info("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	util.GetLogger().Info("Stopping notification worker...")
	return w.consumer.Close()
}

// HandleMessage processes one event message. Always returns nil so the
// offset is committed; malformed or unhandled events are dropped.
func (w *NotificationWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	logger := util.GetLogger()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Warn("Dropping malformed order event", zap.Error(err))
		return nil
	}

	notification, ok := buildNotification(event)
	if !ok {
		return nil
	}

	if err := w.sink.CreateNotification(ctx, notification); err != nil {
		util.NotificationsFailedTotal.Inc()
		logger.Error("Failed to create notification",
			zap.String("order_ref", event.OrderRef),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return nil
	}

	util.NotificationsCreatedTotal.Inc()
	logger.Info("Notification created",
		zap.Int64("user_id", event.UserID),
		zap.String("order_ref", event.OrderRef),
		zap.String("event_type", event.EventType))
	return nil
}

func buildNotification(event models.OrderEvent) (*models.Notification, bool) {
	n := &models.Notification{
		UserID: event.UserID,
		Type:   models.NotificationTypeOrder,
	}

	switch event.EventType {
	case models.EventTypeOrderPlaced:
		n.Title = "Order Placed"
		n.Message = fmt.Sprintf("Your order #%s has been placed successfully.", event.OrderRef)
	case models.EventTypeOrderShipped:
		n.Title = "Order Shipped"
		n.Message = fmt.Sprintf("Good news! Order #%s is on the way.", event.OrderRef)
	case models.EventTypeOrderDelivered:
		n.Type = models.NotificationTypeDelivery
		n.Title = "Order Delivered"
		n.Message = fmt.Sprintf("Your order #%s has been delivered successfully.", event.OrderRef)
	case models.EventTypeOrderCancelled:
		n.Title = "Order Cancelled"
		n.Message = fmt.Sprintf("Order #%s has been cancelled.", event.OrderRef)
	default:
		return nil, false
	}

	return n, true
}

package broker

import (
	"context"
	"fmt"
	"time"

	"shop-service/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes order lifecycle events to the orders topic.
type EventPublisher struct {
	producer *Producer
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (p *EventPublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	key := fmt.Sprintf("order-%d", event.OrderID)
	return p.producer.PublishEvent(ctx, key, event)
}

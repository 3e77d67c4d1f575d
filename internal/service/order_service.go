package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// orderRefRetries bounds how often a colliding order reference is
// regenerated before the error propagates. Collisions in a 7-hex-char
// space are vanishingly rare; the unique constraint is the backstop.
const orderRefRetries = 5

// OrderStore is the slice of the store the order pipeline needs.
type OrderStore interface {
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	GetSmartList(ctx context.Context, id, userID int64) (*models.SmartList, error)
	GetSmartListItems(ctx context.Context, listID int64) ([]models.SmartListItem, error)
	CreateOrderFromCart(ctx context.Context, order *models.Order, items []models.OrderItem, cartID int64) error
	CreateOrderFromSmartList(ctx context.Context, order *models.Order, items []models.OrderItem, listID int64) error
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderByID(ctx context.Context, id, userID int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID, userID int64, status string, progress int) error
	GetOrderSummary(ctx context.Context, userID int64) (int64, decimal.Decimal, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// EventPublisher emits order lifecycle events. Publishing is always
// best-effort; a failed publish never fails the order operation.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
}

// OrderService converts carts and smart lists into immutable orders and
// serves the read side of the order pipeline.
type OrderService struct {
	store     OrderStore
	publisher EventPublisher
	mediaBase string
	logger    *zap.Logger
}

// NewOrderService creates a new order service. publisher may be nil when
// no broker is configured.
func NewOrderService(store OrderStore, publisher EventPublisher, mediaBase string) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		mediaBase: mediaBase,
		logger:    util.GetLogger(),
	}
}

// CheckoutResult is the response shape for cart checkout.
type CheckoutResult struct {
	Message  string `json:"message"`
	OrderRef string `json:"order_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Source   string `json:"source"`
}

// SummaryResult aggregates the user's orders from frozen totals.
type SummaryResult struct {
	TotalOrders int64           `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// Checkout converts the user's cart into an order. The total and the item
// prices are snapshots of current catalog prices; the cart is emptied in
// the same transaction. Stock is not touched here, cart lines reserved it
// when they were added.
func (s *OrderService) Checkout(ctx context.Context, userID int64) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.OrdersFailedTotal.WithLabelValues("cart_not_found").Inc()
			return nil, notFound("cart not found")
		}
		return nil, err
	}

	lines, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	if len(lines) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for i := range lines {
		total = total.Add(lines[i].TotalPrice())
		productID := lines[i].ProductID
		items = append(items, models.OrderItem{
			ProductID:    &productID,
			Quantity:     lines[i].Quantity,
			Price:        lines[i].ProductPrice,
			ProductName:  lines[i].ProductName,
			ProductImage: lines[i].ProductImage,
		})
	}

	order := &models.Order{
		UserID:   userID,
		Total:    total,
		Status:   models.OrderStatusPending,
		Progress: 1,
		Source:   models.OrderSourceCart,
	}

	err = s.placeOrder(ctx, order, items, func(ctx context.Context) error {
		return s.store.CreateOrderFromCart(ctx, order, items, cart.ID)
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.WithLabelValues(models.OrderSourceCart).Inc()
	s.logger.Info("Order placed from cart",
		zap.Int64("user_id", userID),
		zap.String("order_ref", order.OrderID),
		zap.Int("items", len(items)))

	s.publish(ctx, models.EventTypeOrderPlaced, order, items)

	return &CheckoutResult{
		Message:  "Order placed successfully!",
		OrderRef: order.OrderID,
		Status:   order.Status,
		Progress: order.Progress,
		Source:   order.Source,
	}, nil
}

// OrderAll converts every item of a smart list into an order and empties
// the list; the list itself survives. Smart lists never reserved stock, so
// none is deducted here either.
func (s *OrderService) OrderAll(ctx context.Context, userID, listID int64) (*OrderView, string, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.OrderAll")
	defer span.End()

	list, err := s.store.GetSmartList(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.OrdersFailedTotal.WithLabelValues("list_not_found").Inc()
			return nil, "", notFound("smart list not found")
		}
		return nil, "", err
	}

	listItems, err := s.store.GetSmartListItems(ctx, list.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get smart list items: %w", err)
	}
	if len(listItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_list").Inc()
		return nil, "", ErrEmptySmartList
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(listItems))
	for i := range listItems {
		lineTotal := listItems[i].ProductPrice.Mul(decimal.NewFromInt(int64(listItems[i].Quantity)))
		total = total.Add(lineTotal)
		productID := listItems[i].ProductID
		items = append(items, models.OrderItem{
			ProductID:    &productID,
			Quantity:     listItems[i].Quantity,
			Price:        listItems[i].ProductPrice,
			ProductName:  listItems[i].ProductName,
			ProductImage: listItems[i].ProductImage,
		})
	}

	order := &models.Order{
		UserID:   userID,
		Total:    total,
		Status:   models.OrderStatusPending,
		Progress: 1,
		Source:   models.OrderSourceSmartList,
	}

	err = s.placeOrder(ctx, order, items, func(ctx context.Context) error {
		return s.store.CreateOrderFromSmartList(ctx, order, items, list.ID)
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, "", err
	}

	util.OrdersPlacedTotal.WithLabelValues(models.OrderSourceSmartList).Inc()
	s.logger.Info("Order placed from smart list",
		zap.Int64("user_id", userID),
		zap.Int64("smart_list_id", list.ID),
		zap.String("order_ref", order.OrderID),
		zap.Int("items", len(items)))

	s.publish(ctx, models.EventTypeOrderPlaced, order, items)

	message := fmt.Sprintf("All items from '%s' have been ordered successfully.", list.Name)
	return s.orderView(order, items), message, nil
}

// placeOrder assigns the generated order reference and runs the insert,
// retrying with a fresh reference on the rare duplicate-key collision. The
// reference is generated once; it is never recomputed after a successful
// save.
func (s *OrderService) placeOrder(ctx context.Context, order *models.Order, items []models.OrderItem, insert func(context.Context) error) error {
	letter := s.refLetter(ctx, order.UserID)

	var err error
	for attempt := 0; attempt < orderRefRetries; attempt++ {
		order.OrderID = newOrderRef(letter)
		err = insert(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn("Order reference collision, regenerating",
			zap.String("order_ref", order.OrderID))
	}
	return fmt.Errorf("failed to create order after %d attempts: %w", orderRefRetries, err)
}

// refLetter picks the first letter of the user's business name, upper-cased.
// Anything outside A-Z (empty name, digit or non-ASCII initial, failed user
// lookup) falls back to "X" so references always match the documented shape.
func (s *OrderService) refLetter(ctx context.Context, userID int64) rune {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || user.BusinessName == "" {
		return 'X'
	}
	letter := unicode.ToUpper([]rune(user.BusinessName)[0])
	if letter < 'A' || letter > 'Z' {
		return 'X'
	}
	return letter
}

// newOrderRef builds an identifier like ORD-2026-A9F23D7, from the current
// year, the business initial and 7 uppercase hex chars of a random token.
func newOrderRef(letter rune) string {
	u := uuid.New()
	token := strings.ToUpper(hex.EncodeToString(u[:]))[:7]
	return fmt.Sprintf("ORD-%d-%c%s", time.Now().Year(), letter, token)
}

// ListOrders returns the user's orders, newest first, with nested items.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		items, err := s.store.GetOrderItemsByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		views = append(views, *s.orderView(&orders[i], items))
	}
	return views, nil
}

// GetOrder retrieves one order scoped to the requesting user.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("order not found")
		}
		return nil, err
	}
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return s.orderView(order, items), nil
}

// statusProgress maps each status to its progress step. Transitions are
// set directly; no graph is enforced.
var statusProgress = map[string]int{
	models.OrderStatusPending:    1,
	models.OrderStatusProcessing: 2,
	models.OrderStatusShipped:    3,
	models.OrderStatusDelivered:  4,
	models.OrderStatusCancelled:  1,
}

// UpdateStatus sets the order status and its progress step, publishing the
// matching lifecycle event for shipped and delivered.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID int64, status string) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	progress, ok := statusProgress[status]
	if !ok {
		return nil, invalid("unknown order status %q", status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, userID, status, progress); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("order not found")
		}
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.OrderStatusShipped:
		s.publish(ctx, models.EventTypeOrderShipped, order, nil)
	case models.OrderStatusDelivered:
		s.publish(ctx, models.EventTypeOrderDelivered, order, nil)
	case models.OrderStatusCancelled:
		s.publish(ctx, models.EventTypeOrderCancelled, order, nil)
	}

	return s.orderView(order, items), nil
}

// Summary reports the count of the user's orders and the sum of their
// frozen totals. Totals are never recomputed from items.
func (s *OrderService) Summary(ctx context.Context, userID int64) (*SummaryResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Summary")
	defer span.End()

	count, spent, err := s.store.GetOrderSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order summary: %w", err)
	}
	return &SummaryResult{TotalOrders: count, TotalSpent: spent}, nil
}

// publish emits a lifecycle event, logging and swallowing any failure.
func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order, items []models.OrderItem) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		OrderRef: order.OrderID,
		OrderID:  order.ID,
		UserID:   order.UserID,
		Total:    order.Total,
		Source:   order.Source,
	}
	for i := range items {
		var productID int64
		if items[i].ProductID != nil {
			productID = *items[i].ProductID
		}
		event.Items = append(event.Items, models.OrderItemData{
			ProductID: productID,
			Quantity:  items[i].Quantity,
			UnitPrice: items[i].Price,
		})
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_ref", order.OrderID),
			zap.Error(err))
	}
}

func (s *OrderService) orderView(order *models.Order, items []models.OrderItem) *OrderView {
	view := &OrderView{
		ID:        order.ID,
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Status:    order.Status,
		Progress:  order.Progress,
		Total:     order.Total,
		Source:    order.Source,
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
		Items:     make([]OrderItemView, 0, len(items)),
	}
	for i := range items {
		itemView := OrderItemView{
			ID:       items[i].ID,
			Quantity: items[i].Quantity,
			Price:    items[i].Price,
		}
		if items[i].ProductID != nil {
			itemView.Product = &ProductView{
				ID:    *items[i].ProductID,
				Name:  items[i].ProductName,
				Price: items[i].Price,
				Image: imageURL(s.mediaBase, items[i].ProductImage),
			}
		}
		view.Items = append(view.Items, itemView)
	}
	return view
}

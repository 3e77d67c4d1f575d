package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// insertOrderTx writes the order and its frozen item snapshots. A collision
// on the generated order reference surfaces as ErrDuplicateKey so the
// caller can retry with a fresh one.
func insertOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.Order, items []models.OrderItem) error {
	query := `
		INSERT INTO orders (order_id, user_id, total, status, progress, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := tx.GetContext(ctx, order, query,
		order.OrderID, order.UserID, order.Total, order.Status, order.Progress, order.Source)
	if isUniqueViolation(err) {
		return fmt.Errorf("order reference %q: %w", order.OrderID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// CreateOrderFromCart persists the order with its items and empties the
// cart, all in one transaction. Stock is untouched here; cart lines
// already reserved it at add time.
func (s *Store) CreateOrderFromCart(ctx context.Context, order *models.Order, items []models.OrderItem, cartID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertOrderTx(ctx, tx, order, items); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return tx.Commit()
}

// CreateOrderFromSmartList persists the order and empties the list's items
// in one transaction. The list itself survives. Smart lists never held
// stock, so none is deducted.
func (s *Store) CreateOrderFromSmartList(ctx context.Context, order *models.Order, items []models.OrderItem, listID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertOrderTx(ctx, tx, order, items); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM smart_list_items WHERE smart_list_id = $1", listID); err != nil {
		return fmt.Errorf("failed to clear smart list: %w", err)
	}
	return tx.Commit()
}

// GetOrdersByUserID retrieves the user's orders, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	return orders, err
}

// GetOrderByID retrieves an order scoped to its owner.
func (s *Store) GetOrderByID(ctx context.Context, id, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND user_id = $2", id, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves the frozen snapshots for an order. The
// product join is LEFT: deleted products leave a null reference behind.
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
		       COALESCE(p.name, '') AS product_name, COALESCE(p.image, '') AS product_image
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	return items, err
}

// UpdateOrderStatus moves status and progress directly. Order rows are
// otherwise immutable.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, userID int64, status string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, progress = $2 WHERE id = $3 AND user_id = $4",
		status, progress, orderID, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

// GetOrderSummary aggregates the user's orders using the frozen totals, not
// a recomputation over items.
func (s *Store) GetOrderSummary(ctx context.Context, userID int64) (int64, decimal.Decimal, error) {
	var row struct {
		TotalOrders int64           `db:"total_orders"`
		TotalSpent  decimal.Decimal `db:"total_spent"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total_orders, COALESCE(SUM(total), 0) AS total_spent
		FROM orders WHERE user_id = $1`, userID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return row.TotalOrders, row.TotalSpent, nil
}

// CreateNotification inserts a notification row.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.GetContext(ctx, &n.ID, `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		n.UserID, n.Title, n.Message, n.Type)
}

// ListNotifications retrieves the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	return notifications, err
}

// MarkNotificationRead flips the read flag, scoped to the owner.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}

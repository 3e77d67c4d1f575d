package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// GetOrCreateCart returns the user's cart, creating an empty one on first
// access. Safe under concurrent calls: the insert is a no-op when the
// unique user_id row already exists.
func (s *Store) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID)
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartByUserID retrieves the user's cart without creating one.
func (s *Store) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartItems retrieves the cart lines with their product snapshots,
// insertion order.
func (s *Store) GetCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.name AS product_name, p.price AS product_price, p.image AS product_image
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`, cartID)
	return items, err
}

// AddItemToCart deducts quantity from global stock and upserts the cart
// line in one transaction. The stock check and deduction are a single
// conditional UPDATE, so two concurrent adds can never drive stock
// negative. Returns the line and the remaining stock; on insufficient
// stock the remaining stock is still reported.
func (s *Store) AddItemToCart(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var stock int
	err = tx.GetContext(ctx, &stock,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1 RETURNING stock",
		quantity, productID)
	if err == sql.ErrNoRows {
		var remaining int
		if err := tx.GetContext(ctx, &remaining,
			"SELECT stock FROM products WHERE id = $1", productID); err != nil {
			if err == sql.ErrNoRows {
				return nil, 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
			}
			return nil, 0, err
		}
		return nil, remaining, fmt.Errorf("product %d has %d left: %w", productID, remaining, ErrInsufficientStock)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to deduct stock: %w", err)
	}

	var item models.CartItem
	err = tx.GetContext(ctx, &item, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity`,
		cartID, productID, quantity)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &item, stock, nil
}

// SetCartItemQuantity moves an existing line to an absolute quantity and
// settles the stock difference: an increase deducts, a decrease restocks.
// The product row is locked across the read-check-write.
func (s *Store) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var stock int
	err = tx.GetContext(ctx, &stock,
		"SELECT stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return nil, 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to lock product: %w", err)
	}

	var item models.CartItem
	err = tx.GetContext(ctx, &item,
		"SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2",
		cartID, productID)
	if err == sql.ErrNoRows {
		return nil, 0, fmt.Errorf("cart item for product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, 0, err
	}

	diff := quantity - item.Quantity
	if diff > 0 {
		if stock < diff {
			return nil, stock, fmt.Errorf("product %d has %d left: %w", productID, stock, ErrInsufficientStock)
		}
		stock -= diff
	} else if diff < 0 {
		stock += -diff
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = $1 WHERE id = $2", stock, productID); err != nil {
		return nil, 0, fmt.Errorf("failed to update stock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, item.ID); err != nil {
		return nil, 0, fmt.Errorf("failed to update cart item: %w", err)
	}
	item.Quantity = quantity

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &item, stock, nil
}

// DeleteCartItem removes a single line. Stock is intentionally not
// returned to the catalog; removal is not a cancellation of the
// reservation in the current design.
func (s *Store) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("cart item for product %d: %w", productID, ErrNotFound)
	}
	return nil
}

// ClearCart deletes every line of the cart and reports how many were
// removed. Like DeleteCartItem, it does not restock.
func (s *Store) ClearCart(ctx context.Context, cartID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

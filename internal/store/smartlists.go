package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// ListSmartLists retrieves the user's smart lists, newest first.
func (s *Store) ListSmartLists(ctx context.Context, userID int64) ([]models.SmartList, error) {
	var lists []models.SmartList
	err := s.db.SelectContext(ctx, &lists,
		"SELECT * FROM smart_lists WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	return lists, err
}

// GetOrCreateSmartList returns the user's list with the given name,
// creating it when absent. The second return value reports whether a new
// list was created. Safe under concurrent calls: the insert yields to the
// unique (user_id, name) row when another request wins the race, and the
// loser reads it back.
func (s *Store) GetOrCreateSmartList(ctx context.Context, userID int64, name string) (*models.SmartList, bool, error) {
	var list models.SmartList
	err := s.db.GetContext(ctx, &list,
		"SELECT * FROM smart_lists WHERE user_id = $1 AND name = $2", userID, name)
	if err == nil {
		return &list, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	err = s.db.GetContext(ctx, &list, `
		INSERT INTO smart_lists (user_id, name) VALUES ($1, $2)
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING *`, userID, name)
	if err == nil {
		return &list, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	// Lost the race; the conflicting row exists now.
	if err := s.db.GetContext(ctx, &list,
		"SELECT * FROM smart_lists WHERE user_id = $1 AND name = $2", userID, name); err != nil {
		return nil, false, err
	}
	return &list, false, nil
}

// GetSmartList retrieves a list by id scoped to its owner. A list owned by
// another user is indistinguishable from a missing one.
func (s *Store) GetSmartList(ctx context.Context, id, userID int64) (*models.SmartList, error) {
	var list models.SmartList
	err := s.db.GetContext(ctx, &list,
		"SELECT * FROM smart_lists WHERE id = $1 AND user_id = $2", id, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("smart list %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteSmartList removes a list and, via cascade, its items.
func (s *Store) DeleteSmartList(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM smart_lists WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("smart list %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetSmartListItems retrieves a list's lines with product snapshots.
func (s *Store) GetSmartListItems(ctx context.Context, listID int64) ([]models.SmartListItem, error) {
	var items []models.SmartListItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT sli.id, sli.smart_list_id, sli.product_id, sli.quantity,
		       p.name AS product_name, p.price AS product_price, p.image AS product_image
		FROM smart_list_items sli
		JOIN products p ON p.id = sli.product_id
		WHERE sli.smart_list_id = $1
		ORDER BY sli.id`, listID)
	return items, err
}

// UpsertSmartListItem adds quantity to a list line, creating it when
// absent. Smart lists never touch product stock.
func (s *Store) UpsertSmartListItem(ctx context.Context, listID, productID int64, quantity int) (*models.SmartListItem, error) {
	var item models.SmartListItem
	err := s.db.GetContext(ctx, &item, `
		INSERT INTO smart_list_items (smart_list_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (smart_list_id, product_id)
		DO UPDATE SET quantity = smart_list_items.quantity + EXCLUDED.quantity
		RETURNING id, smart_list_id, product_id, quantity`,
		listID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert smart list item: %w", err)
	}
	return &item, nil
}

// GetSmartListItem retrieves a single line scoped to its list.
func (s *Store) GetSmartListItem(ctx context.Context, itemID, listID int64) (*models.SmartListItem, error) {
	var item models.SmartListItem
	err := s.db.GetContext(ctx, &item, `
		SELECT sli.id, sli.smart_list_id, sli.product_id, sli.quantity,
		       p.name AS product_name, p.price AS product_price, p.image AS product_image
		FROM smart_list_items sli
		JOIN products p ON p.id = sli.product_id
		WHERE sli.id = $1 AND sli.smart_list_id = $2`, itemID, listID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("smart list item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetSmartListItemQuantity sets a line to an absolute quantity.
func (s *Store) SetSmartListItemQuantity(ctx context.Context, itemID, listID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE smart_list_items SET quantity = $1 WHERE id = $2 AND smart_list_id = $3",
		quantity, itemID, listID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("smart list item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// DeleteSmartListItem removes a single line.
func (s *Store) DeleteSmartListItem(ctx context.Context, itemID, listID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM smart_list_items WHERE id = $1 AND smart_list_id = $2", itemID, listID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("smart list item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

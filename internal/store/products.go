package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlug retrieves a product by exact, case-sensitive slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlugFold retrieves a product by slug, case-insensitively.
// When several slugs differ only by case the lowest id wins.
func (s *Store) GetProductBySlugFold(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE LOWER(slug) = LOWER($1) ORDER BY id LIMIT 1", slug)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SearchProducts returns products whose slug or name contains the term,
// case-insensitively, ordered by id ascending so results are deterministic.
func (s *Store) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	var products []models.Product
	pattern := "%" + term + "%"
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE slug ILIKE $1 OR name ILIKE $1 ORDER BY id", pattern)
	return products, err
}

// ListProducts retrieves the full catalog, newest first.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC, id DESC")
	return products, err
}

// SlugExists reports whether any product already uses the slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)", slug)
	return exists, err
}

// CreateProduct inserts a product. The slug must already be assigned and
// unique; a collision surfaces as ErrDuplicateKey.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, slug, price, stock, category_id, image, rating, num_reviews, is_new, is_promo, flash_sale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, product, query,
		product.Name, product.Slug, product.Price, product.Stock, product.CategoryID,
		product.Image, product.Rating, product.NumReviews, product.IsNew, product.IsPromo, product.FlashSale)
	if isUniqueViolation(err) {
		return fmt.Errorf("product slug %q: %w", product.Slug, ErrDuplicateKey)
	}
	return err
}

// UpdateProduct updates the mutable columns of a product. The slug is
// immutable once set and is deliberately not written here.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, price = $2, stock = $3, category_id = $4, image = $5,
		    rating = $6, num_reviews = $7, is_new = $8, is_promo = $9, flash_sale = $10
		WHERE id = $11`,
		product.Name, product.Price, product.Stock, product.CategoryID, product.Image,
		product.Rating, product.NumReviews, product.IsNew, product.IsPromo, product.FlashSale,
		product.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product %d: %w", product.ID, ErrNotFound)
	}
	return nil
}

// DeleteProduct removes a product. Historical order items keep their rows;
// their product reference goes null via ON DELETE SET NULL.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListCategories retrieves all categories.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// CreateCategory inserts a category. Names are unique.
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	err := s.db.GetContext(ctx, &category.ID,
		"INSERT INTO categories (name) VALUES ($1) RETURNING id", category.Name)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", category.Name, ErrDuplicateKey)
	}
	return err
}

// GetUserByID retrieves a user reference.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cache keys for catalog listings.
const (
	productListCacheKey  = "product_list"
	categoryListCacheKey = "category_list"
)

// CatalogStore is the slice of the store the catalog service needs.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}

// ListCache is a read-through cache for catalog listings. It is an
// optimization only: every method may fail without affecting correctness.
type ListCache interface {
	GetList(ctx context.Context, name string, dest interface{}) (bool, error)
	SetList(ctx context.Context, name string, value interface{}) error
	InvalidateLists(ctx context.Context, names ...string) error
}

// CatalogService owns product and category CRUD and the cached listings.
type CatalogService struct {
	store  CatalogStore
	cache  ListCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil when
// no cache layer is configured.
func NewCatalogService(store CatalogStore, cache ListCache) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ProductInput carries the caller-supplied product fields.
type ProductInput struct {
	Name       string          `json:"name" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID *int64          `json:"category_id"`
	Image      string          `json:"image"`
	IsNew      bool            `json:"is_new"`
	IsPromo    bool            `json:"is_promo"`
	FlashSale  bool            `json:"flash_sale"`
}

// ListProducts serves the catalog from cache when possible, filling it
// from the database on a miss. Cache failures degrade to the database.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	var products []models.Product
	if s.cache != nil {
		hit, err := s.cache.GetList(ctx, productListCacheKey, &products)
		if err != nil {
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		} else if hit {
			util.CatalogCacheHits.Inc()
			return products, nil
		}
		util.CatalogCacheMisses.Inc()
	}

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, productListCacheKey, products); err != nil {
			s.logger.Warn("Catalog cache fill failed", zap.Error(err))
		}
	}
	return products, nil
}

// GetProduct retrieves one product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("product not found")
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct validates the input, assigns a unique slug derived from
// the name and inserts the product. Any catalog write invalidates the
// cached listings.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if input.Name == "" {
		return nil, invalid("product name is required")
	}
	if input.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, invalid("stock must not be negative")
	}

	product := &models.Product{
		Name:       input.Name,
		Price:      input.Price,
		Stock:      input.Stock,
		CategoryID: input.CategoryID,
		Image:      input.Image,
		Rating:     decimal.Zero,
		IsNew:      input.IsNew,
		IsPromo:    input.IsPromo,
		FlashSale:  input.FlashSale,
	}

	// The disambiguation loop and the unique constraint together cover the
	// race between two concurrent creates choosing the same slug.
	for attempt := 0; ; attempt++ {
		slug, err := s.uniqueSlug(ctx, input.Name)
		if err != nil {
			return nil, err
		}
		product.Slug = slug

		err = s.store.CreateProduct(ctx, product)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicateKey) || attempt >= 3 {
			return nil, fmt.Errorf("failed to create product: %w", err)
		}
	}

	s.invalidate(ctx, productListCacheKey)
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("slug", product.Slug))
	return product, nil
}

// UpdateProduct updates the mutable fields. The slug never changes once
// assigned.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, input *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if input.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, invalid("stock must not be negative")
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("product not found")
		}
		return nil, err
	}

	if input.Name != "" {
		product.Name = input.Name
	}
	product.Price = input.Price
	product.Stock = input.Stock
	product.CategoryID = input.CategoryID
	if input.Image != "" {
		product.Image = input.Image
	}
	product.IsNew = input.IsNew
	product.IsPromo = input.IsPromo
	product.FlashSale = input.FlashSale

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("product not found")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate(ctx, productListCacheKey)
	return product, nil
}

// DeleteProduct removes a product. Order history keeps its frozen
// snapshots; their product references go null.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("product not found")
		}
		return err
	}
	s.invalidate(ctx, productListCacheKey)
	return nil
}

// ListCategories serves categories through the cache.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if s.cache != nil {
		hit, err := s.cache.GetList(ctx, categoryListCacheKey, &categories)
		if err != nil {
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		} else if hit {
			util.CatalogCacheHits.Inc()
			return categories, nil
		}
		util.CatalogCacheMisses.Inc()
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, categoryListCacheKey, categories); err != nil {
			s.logger.Warn("Catalog cache fill failed", zap.Error(err))
		}
	}
	return categories, nil
}

// CreateCategory inserts a category and invalidates its listing.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, invalid("category name is required")
	}

	category := &models.Category{Name: name}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, invalid("category %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidate(ctx, categoryListCacheKey)
	return category, nil
}

func (s *CatalogService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLists(ctx, keys...); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}

// uniqueSlug slugifies the name and appends -1, -2, ... until the slug is
// free.
func (s *CatalogService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "product"
	}

	slug := base
	for counter := 1; ; counter++ {
		exists, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

// slugify lowercases the name and collapses every run of non-alphanumeric
// characters into a single dash.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

package service

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartStore is the slice of the store the cart service needs.
type CartStore interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	AddItemToCart(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error)
	SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error)
	DeleteCartItem(ctx context.Context, cartID, productID int64) error
	ClearCart(ctx context.Context, cartID int64) (int64, error)
}

// CartService owns the per-user reserving cart. Adds and quantity updates
// move global stock; removals and clears do not (see DESIGN.md).
type CartService struct {
	store       CartStore
	resolver    *Resolver
	hideStockAt int
	mediaBase   string
	logger      *zap.Logger
}

// NewCartService creates a new cart service. hideStockAt is the stock
// balance that is suppressed in add responses; zero disables suppression.
func NewCartService(store CartStore, resolver *Resolver, hideStockAt int, mediaBase string) *CartService {
	return &CartService{
		store:       store,
		resolver:    resolver,
		hideStockAt: hideStockAt,
		mediaBase:   mediaBase,
		logger:      util.GetLogger(),
	}
}

// CartLineResult is the response shape for cart mutations.
type CartLineResult struct {
	Message  string           `json:"message"`
	CartItem CartLineView     `json:"cartItem"`
	Stock    *int             `json:"stock_balance,omitempty"`
}

// CartLineView is the flat line serialization mutations return.
type CartLineView struct {
	ID       int64           `json:"id"`
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// GetCart returns the user's cart, creating an empty one on first access.
// Idempotent.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	view := &CartView{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]CartItemView, 0, len(items)),
	}
	total := decimal.Zero
	for i := range items {
		line := items[i].TotalPrice()
		total = total.Add(line)
		view.Items = append(view.Items, CartItemView{
			ID: items[i].ID,
			Product: ProductView{
				ID:    items[i].ProductID,
				Name:  items[i].ProductName,
				Price: items[i].ProductPrice,
				Image: imageURL(s.mediaBase, items[i].ProductImage),
			},
			Quantity:   items[i].Quantity,
			TotalPrice: line,
		})
	}
	view.TotalPrice = total
	return view, nil
}

// AddItem resolves the identifier, reserves quantity units of global stock
// and upserts the cart line; the quantity accumulates on repeat adds. The
// returned stock balance is suppressed when it equals the configured hide
// threshold.
func (s *CartService) AddItem(ctx context.Context, userID int64, identifier string, quantity int) (*CartLineResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if identifier == "" {
		util.CartAddsFailedTotal.WithLabelValues("validation").Inc()
		return nil, invalid("product identifier is required")
	}
	if quantity < 1 {
		util.CartAddsFailedTotal.WithLabelValues("validation").Inc()
		return nil, invalid("quantity must be at least 1")
	}

	product, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		util.CartAddsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	item, stock, err := s.store.AddItemToCart(ctx, cart.ID, product.ID, quantity)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			util.CartAddsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, &InsufficientStockError{ProductName: product.Name, Remaining: stock}
		}
		util.CartAddsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	util.CartAddsTotal.Inc()
	s.logger.Info("Added item to cart",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", product.ID),
		zap.Int("quantity", quantity),
		zap.Int("stock_balance", stock))

	return &CartLineResult{
		Message: fmt.Sprintf("Added %d × %s to cart", quantity, product.Name),
		CartItem: CartLineView{
			ID:       item.ID,
			Product:  product.Name,
			Quantity: item.Quantity,
			Price:    product.Price,
		},
		Stock: s.stockBalance(stock),
	}, nil
}

// RemoveItem deletes a line from the cart. The reserved stock is not
// returned to the catalog.
func (s *CartService) RemoveItem(ctx context.Context, userID int64, identifier string) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	if identifier == "" {
		return invalid("product identifier is required")
	}

	product, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return err
	}

	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("cart not found")
		}
		return err
	}

	if err := s.store.DeleteCartItem(ctx, cart.ID, product.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("item not found")
		}
		return err
	}
	return nil
}

// UpdateItem sets a cart line to an absolute quantity. An increase deducts
// the difference from stock (failing when it exceeds what is left), a
// decrease restocks it.
func (s *CartService) UpdateItem(ctx context.Context, userID int64, identifier string, quantity int) (*CartLineResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer span.End()

	if identifier == "" {
		return nil, invalid("product identifier and quantity required")
	}
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	product, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	item, stock, err := s.store.SetCartItemQuantity(ctx, cart.ID, product.ID, quantity)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, &InsufficientStockError{ProductName: product.Name, Remaining: stock}
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("this product is not in your cart")
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	balance := stock
	return &CartLineResult{
		Message: fmt.Sprintf("Updated %s to quantity %d", product.Name, item.Quantity),
		CartItem: CartLineView{
			ID:       item.ID,
			Product:  product.Name,
			Quantity: item.Quantity,
			Price:    product.Price,
		},
		Stock: &balance,
	}, nil
}

// Clear deletes every line of the user's cart and reports the count. The
// reserved stock stays deducted.
func (s *CartService) Clear(ctx context.Context, userID int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get cart: %w", err)
	}
	return s.store.ClearCart(ctx, cart.ID)
}

// stockBalance hides the balance when it lands exactly on the configured
// threshold, a display compatibility quirk carried over from the previous
// system.
func (s *CartService) stockBalance(stock int) *int {
	if s.hideStockAt != 0 && stock == s.hideStockAt {
		return nil
	}
	return &stock
}

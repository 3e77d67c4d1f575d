package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is supplied by the identity provider; this service only reads it.
type User struct {
	ID           int64     `db:"id" json:"id"`
	BusinessName string    `db:"business_name" json:"business_name"`
	Email        string    `db:"email" json:"email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups products. Deleting a category detaches its products.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product represents a catalog entry. The slug is unique and never changes
// once assigned.
type Product struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Slug       string          `db:"slug" json:"slug"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Stock      int             `db:"stock" json:"stock"`
	CategoryID *int64          `db:"category_id" json:"category_id,omitempty"`
	Image      string          `db:"image" json:"image,omitempty"`
	Rating     decimal.Decimal `db:"rating" json:"rating"`
	NumReviews int             `db:"num_reviews" json:"num_reviews"`
	IsNew      bool            `db:"is_new" json:"is_new"`
	IsPromo    bool            `db:"is_promo" json:"is_promo"`
	FlashSale  bool            `db:"flash_sale" json:"flash_sale"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Cart is the per-user reserving collection. One row per user, created
// lazily on first access.
type Cart struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartItem is one line of a cart. At most one row per (cart, product);
// repeat adds accumulate quantity.
type CartItem struct {
	ID        int64 `db:"id" json:"id"`
	CartID    int64 `db:"cart_id" json:"cart_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`

	// Joined product columns, populated on reads.
	ProductName  string          `db:"product_name" json:"-"`
	ProductPrice decimal.Decimal `db:"product_price" json:"-"`
	ProductImage string          `db:"product_image" json:"-"`
}

// TotalPrice returns the line total at current catalog prices.
func (ci *CartItem) TotalPrice() decimal.Decimal {
	return ci.ProductPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// SmartList is a named, non-reserving wish list. Many per user, identified
// by (user, name) through get-or-create semantics.
type SmartList struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SmartListItem mirrors CartItem but never holds stock.
type SmartListItem struct {
	ID          int64 `db:"id" json:"id"`
	SmartListID int64 `db:"smart_list_id" json:"smart_list_id"`
	ProductID   int64 `db:"product_id" json:"product_id"`
	Quantity    int   `db:"quantity" json:"quantity"`

	ProductName  string          `db:"product_name" json:"-"`
	ProductPrice decimal.Decimal `db:"product_price" json:"-"`
	ProductImage string          `db:"product_image" json:"-"`
}

// Order statuses. Status is set directly; there is no enforced transition
// graph.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order sources.
const (
	OrderSourceCart      = "cart"
	OrderSourceSmartList = "smartlist"
	OrderSourceManual    = "manual"
)

// Order is an immutable record of a completed checkout. Total is a frozen
// snapshot, never recomputed from items. Only status and progress may move
// after creation.
type Order struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"order_id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Status    string          `db:"status" json:"status"`
	Progress  int             `db:"progress" json:"progress"`
	Source    string          `db:"source" json:"source"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// OrderItem is a frozen snapshot of a line at order time. Price is a copy
// of the product price, not a live reference. ProductID goes null if the
// product is later deleted; the order item survives.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID *int64          `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`

	ProductName  string `db:"product_name" json:"-"`
	ProductImage string `db:"product_image" json:"-"`
}

// Notification types.
const (
	NotificationTypeOrder    = "order"
	NotificationTypePayment  = "payment"
	NotificationTypeDelivery = "delivery"
	NotificationTypeSupport  = "support"
	NotificationTypeSystem   = "system"
	NotificationTypePromo    = "promo"
)

// Notification is a per-user, type-tagged message with a read flag.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

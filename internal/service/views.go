package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// View types are the JSON shapes the HTTP layer returns. They embed frozen
// product snapshots rather than live references where the data model
// requires it.

// ProductView is the nested product snapshot used by cart, smart-list and
// order serializations.
type ProductView struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image *string         `json:"image"`
}

// CartItemView is one serialized cart line.
type CartItemView struct {
	ID         int64           `json:"id"`
	Product    ProductView     `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartView is the serialized cart.
type CartView struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user"`
	Items      []CartItemView  `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// SmartListItemView is one serialized smart-list line.
type SmartListItemView struct {
	ID       int64       `json:"id"`
	Product  ProductView `json:"product"`
	Quantity int         `json:"quantity"`
}

// SmartListView is a serialized smart list.
type SmartListView struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	CreatedAt string              `json:"created_at"`
	Items     []SmartListItemView `json:"items"`
}

// OrderItemView is one frozen order line. Product is null when the catalog
// entry was deleted after the order was placed.
type OrderItemView struct {
	ID       int64           `json:"id"`
	Product  *ProductView    `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderView is a serialized order.
type OrderView struct {
	ID        int64           `json:"id"`
	OrderID   string          `json:"order_id"`
	UserID    int64           `json:"user"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	Total     decimal.Decimal `json:"total"`
	Source    string          `json:"source"`
	CreatedAt string          `json:"created_at"`
	Items     []OrderItemView `json:"items"`
}

// imageURL turns a stored media path into an absolute URL, or nil when the
// product has no image.
func imageURL(base, path string) *string {
	if path == "" {
		return nil
	}
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	return &url
}

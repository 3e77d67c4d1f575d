package service

import (
	"context"
	"regexp"
	"testing"

	"shop-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRefPattern = regexp.MustCompile(`^ORD-\d{4}-[A-Z][0-9A-F]{7}$`)

func newOrderFixture(t *testing.T) (*fakeStore, *fakePublisher, *CartService, *OrderService) {
	t.Helper()
	fs := newFakeStore()
	pub := &fakePublisher{}
	carts := newCartService(fs, 0)
	orders := NewOrderService(fs, pub, "http://media.test")
	return fs, pub, carts, orders
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	fs, pub, carts, orders := newOrderFixture(t)
	milk := fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)
	fs.addProduct("Green Tea", "green-tea", "3.00", 10)

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 2)
	require.NoError(t, err)
	_, err = carts.AddItem(context.Background(), 1, "green-tea", 3)
	require.NoError(t, err)

	result, err := orders.Checkout(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, result.Status)
	assert.Equal(t, 1, result.Progress)
	assert.Equal(t, models.OrderSourceCart, result.Source)
	assert.Regexp(t, orderRefPattern, result.OrderRef)

	// The cart is empty, the reserved stock stays deducted.
	cart, err := carts.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 8, fs.products[milk.ID].Stock)

	// The stored total is the frozen sum 2*2.50 + 3*3.00.
	require.Len(t, fs.orders, 1)
	assert.True(t, fs.orders[0].Total.Equal(decimal.RequireFromString("14.00")))

	placed := pub.byType(models.EventTypeOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, result.OrderRef, placed[0].OrderRef)
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, _, carts, orders := newOrderFixture(t)

	_, err := carts.GetCart(context.Background(), 1)
	require.NoError(t, err)

	_, err = orders.Checkout(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutNoCart(t *testing.T) {
	_, _, _, orders := newOrderFixture(t)

	_, err := orders.Checkout(context.Background(), 1)
	var notFoundErr *NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestCheckoutFreezesPrices(t *testing.T) {
	fs, _, carts, orders := newOrderFixture(t)
	milk := fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 2)
	require.NoError(t, err)

	result, err := orders.Checkout(context.Background(), 1)
	require.NoError(t, err)

	// A later price change leaves the order untouched.
	fs.products[milk.ID].Price = decimal.RequireFromString("99.00")

	views, err := orders.ListOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, result.OrderRef, views[0].OrderID)
	assert.True(t, views[0].Total.Equal(decimal.RequireFromString("5.00")))
	require.Len(t, views[0].Items, 1)
	assert.True(t, views[0].Items[0].Price.Equal(decimal.RequireFromString("2.50")))
}

func TestOrderRefUsesBusinessInitial(t *testing.T) {
	fs, _, carts, orders := newOrderFixture(t)
	fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)
	fs.addUser(1, "acme goods")

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 1)
	require.NoError(t, err)

	result, err := orders.Checkout(context.Background(), 1)
	require.NoError(t, err)

	require.Regexp(t, orderRefPattern, result.OrderRef)
	assert.Equal(t, byte('A'), result.OrderRef[len("ORD-2006-")])
}

func TestOrderRefFallsBackToX(t *testing.T) {
	cases := map[string]string{
		"no user row":       "",
		"digit initial":     "7-Eleven Clone",
		"non-ascii initial": "Ödeme GmbH",
		"symbol initial":    "#1 Shop",
	}

	userID := int64(1)
	for name, businessName := range cases {
		t.Run(name, func(t *testing.T) {
			fs, _, carts, orders := newOrderFixture(t)
			fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)
			if businessName != "" {
				fs.addUser(userID, businessName)
			}

			_, err := carts.AddItem(context.Background(), userID, "fresh-milk", 1)
			require.NoError(t, err)

			result, err := orders.Checkout(context.Background(), userID)
			require.NoError(t, err)

			require.Regexp(t, orderRefPattern, result.OrderRef)
			assert.Equal(t, byte('X'), result.OrderRef[len("ORD-2006-")])
		})
	}
}

func TestOrderRefCollisionRetries(t *testing.T) {
	fs, _, carts, orders := newOrderFixture(t)
	fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 1)
	require.NoError(t, err)

	fs.refCollisions = 2

	result, err := orders.Checkout(context.Background(), 1)
	require.NoError(t, err)
	assert.Regexp(t, orderRefPattern, result.OrderRef)
	require.Len(t, fs.orders, 1)
}

func TestOrderAllLeavesListInPlace(t *testing.T) {
	fs, pub, _, orders := newOrderFixture(t)
	milk := fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)
	lists := NewSmartListService(fs, NewResolver(fs), "http://media.test")

	list, _, err := lists.Create(context.Background(), 1, "Weekly Shop")
	require.NoError(t, err)
	_, err = lists.AddItem(context.Background(), 1, list.ID, "fresh-milk", 4)
	require.NoError(t, err)

	view, message, err := orders.OrderAll(context.Background(), 1, list.ID)
	require.NoError(t, err)
	assert.Contains(t, message, "Weekly Shop")
	assert.Equal(t, models.OrderSourceSmartList, view.Source)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("10.00")))

	// Smart lists never touch stock, ordering from one does not either.
	assert.Equal(t, 10, fs.products[milk.ID].Stock)

	// The list survives, emptied.
	after, err := lists.Get(context.Background(), 1, list.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Items)

	placed := pub.byType(models.EventTypeOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, models.OrderSourceSmartList, placed[0].Source)
}

func TestOrderAllEmptyList(t *testing.T) {
	fs, _, _, orders := newOrderFixture(t)
	lists := NewSmartListService(fs, NewResolver(fs), "http://media.test")

	list, _, err := lists.Create(context.Background(), 1, "Empty")
	require.NoError(t, err)

	_, _, err = orders.OrderAll(context.Background(), 1, list.ID)
	assert.ErrorIs(t, err, ErrEmptySmartList)
}

func TestOrderAllScopedToOwner(t *testing.T) {
	fs, _, _, orders := newOrderFixture(t)
	fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)
	lists := NewSmartListService(fs, NewResolver(fs), "http://media.test")

	list, _, err := lists.Create(context.Background(), 1, "Mine")
	require.NoError(t, err)
	_, err = lists.AddItem(context.Background(), 1, list.ID, "fresh-milk", 1)
	require.NoError(t, err)

	_, _, err = orders.OrderAll(context.Background(), 2, list.ID)
	var notFoundErr *NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestUpdateStatusSetsProgressAndPublishes(t *testing.T) {
	fs, pub, carts, orders := newOrderFixture(t)
	fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 1)
	require.NoError(t, err)
	_, err = orders.Checkout(context.Background(), 1)
	require.NoError(t, err)
	orderID := fs.orders[0].ID

	view, err := orders.UpdateStatus(context.Background(), 1, orderID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, view.Status)
	assert.Equal(t, 3, view.Progress)
	assert.Len(t, pub.byType(models.EventTypeOrderShipped), 1)

	view, err = orders.UpdateStatus(context.Background(), 1, orderID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Progress)
	assert.Len(t, pub.byType(models.EventTypeOrderDelivered), 1)

	_, err = orders.UpdateStatus(context.Background(), 1, orderID, "teleported")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSummaryUsesFrozenTotals(t *testing.T) {
	fs, _, carts, orders := newOrderFixture(t)
	milk := fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 100)

	for i := 0; i < 3; i++ {
		_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 2)
		require.NoError(t, err)
		_, err = orders.Checkout(context.Background(), 1)
		require.NoError(t, err)
	}

	// Price moves after the orders were placed.
	fs.products[milk.ID].Price = decimal.RequireFromString("50.00")

	summary, err := orders.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalOrders)
	assert.True(t, summary.TotalSpent.Equal(decimal.RequireFromString("15.00")),
		"got %s", summary.TotalSpent)
}

func TestSummaryEmpty(t *testing.T) {
	_, _, _, orders := newOrderFixture(t)

	summary, err := orders.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalOrders)
	assert.True(t, summary.TotalSpent.IsZero())
}

func TestGetOrderScopedToOwner(t *testing.T) {
	fs, _, carts, orders := newOrderFixture(t)
	fs.addProduct("Fresh Milk", "fresh-milk", "2.50", 10)

	_, err := carts.AddItem(context.Background(), 1, "fresh-milk", 1)
	require.NoError(t, err)
	_, err = orders.Checkout(context.Background(), 1)
	require.NoError(t, err)

	_, err = orders.GetOrder(context.Background(), 2, fs.orders[0].ID)
	var notFoundErr *NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

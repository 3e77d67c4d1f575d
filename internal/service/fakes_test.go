package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for *store.Store covering every store
// interface the services consume.
type fakeStore struct {
	mu sync.Mutex

	nextID   int64
	products map[int64]*models.Product
	users    map[int64]*models.User

	carts     map[int64]*models.Cart
	cartItems map[int64][]*models.CartItem

	lists     []*models.SmartList
	listItems map[int64][]*models.SmartListItem

	orders     []*models.Order
	orderItems map[int64][]models.OrderItem

	categories []*models.Category

	// Remaining CreateOrderFrom* calls that fail with a duplicate key.
	refCollisions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   make(map[int64]*models.Product),
		users:      make(map[int64]*models.User),
		carts:      make(map[int64]*models.Cart),
		cartItems:  make(map[int64][]*models.CartItem),
		listItems:  make(map[int64][]*models.SmartListItem),
		orderItems: make(map[int64][]models.OrderItem),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addProduct(name, slug, price string, stock int) *models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Product{
		ID:    f.id(),
		Name:  name,
		Slug:  slug,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) addUser(id int64, businessName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &models.User{ID: id, BusinessName: businessName}
}

func (f *fakeStore) sortedProducts() []*models.Product {
	out := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- ProductFinder ---

func (f *fakeStore) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.sortedProducts() {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetProductBySlugFold(ctx context.Context, slug string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.sortedProducts() {
		if strings.EqualFold(p.Slug, slug) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lower := strings.ToLower(term)
	var out []models.Product
	for _, p := range f.sortedProducts() {
		if strings.Contains(strings.ToLower(p.Slug), lower) ||
			strings.Contains(strings.ToLower(p.Name), lower) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- CartStore ---

func (f *fakeStore) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.carts[userID]; ok {
		cp := *c
		return &cp, nil
	}
	c := &models.Cart{ID: f.id(), UserID: userID, CreatedAt: time.Now()}
	f.carts[userID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.carts[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CartItem
	for _, it := range f.cartItems[cartID] {
		cp := *it
		if p, ok := f.products[it.ProductID]; ok {
			cp.ProductName = p.Name
			cp.ProductPrice = p.Price
			cp.ProductImage = p.Image
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeStore) AddItemToCart(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	if p.Stock < quantity {
		return nil, p.Stock, store.ErrInsufficientStock
	}
	p.Stock -= quantity

	for _, it := range f.cartItems[cartID] {
		if it.ProductID == productID {
			it.Quantity += quantity
			cp := *it
			return &cp, p.Stock, nil
		}
	}
	it := &models.CartItem{ID: f.id(), CartID: cartID, ProductID: productID, Quantity: quantity}
	f.cartItems[cartID] = append(f.cartItems[cartID], it)
	cp := *it
	return &cp, p.Stock, nil
}

func (f *fakeStore) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	for _, it := range f.cartItems[cartID] {
		if it.ProductID == productID {
			diff := quantity - it.Quantity
			if diff > 0 && p.Stock < diff {
				return nil, p.Stock, store.ErrInsufficientStock
			}
			p.Stock -= diff
			it.Quantity = quantity
			cp := *it
			return &cp, p.Stock, nil
		}
	}
	return nil, p.Stock, store.ErrNotFound
}

func (f *fakeStore) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.cartItems[cartID]
	for i, it := range items {
		if it.ProductID == productID {
			f.cartItems[cartID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ClearCart(ctx context.Context, cartID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.cartItems[cartID]))
	f.cartItems[cartID] = nil
	return n, nil
}

// --- SmartListStore ---

func (f *fakeStore) ListSmartLists(ctx context.Context, userID int64) ([]models.SmartList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SmartList
	for i := len(f.lists) - 1; i >= 0; i-- {
		if f.lists[i].UserID == userID {
			out = append(out, *f.lists[i])
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateSmartList(ctx context.Context, userID int64, name string) (*models.SmartList, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		if l.UserID == userID && l.Name == name {
			cp := *l
			return &cp, false, nil
		}
	}
	l := &models.SmartList{ID: f.id(), UserID: userID, Name: name, CreatedAt: time.Now()}
	f.lists = append(f.lists, l)
	cp := *l
	return &cp, true, nil
}

func (f *fakeStore) GetSmartList(ctx context.Context, id, userID int64) (*models.SmartList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		if l.ID == id && l.UserID == userID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteSmartList(ctx context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.lists {
		if l.ID == id && l.UserID == userID {
			f.lists = append(f.lists[:i], f.lists[i+1:]...)
			delete(f.listItems, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetSmartListItems(ctx context.Context, listID int64) ([]models.SmartListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SmartListItem
	for _, it := range f.listItems[listID] {
		cp := *it
		if p, ok := f.products[it.ProductID]; ok {
			cp.ProductName = p.Name
			cp.ProductPrice = p.Price
			cp.ProductImage = p.Image
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeStore) UpsertSmartListItem(ctx context.Context, listID, productID int64, quantity int) (*models.SmartListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.listItems[listID] {
		if it.ProductID == productID {
			it.Quantity += quantity
			cp := *it
			return &cp, nil
		}
	}
	it := &models.SmartListItem{ID: f.id(), SmartListID: listID, ProductID: productID, Quantity: quantity}
	f.listItems[listID] = append(f.listItems[listID], it)
	cp := *it
	return &cp, nil
}

func (f *fakeStore) GetSmartListItem(ctx context.Context, itemID, listID int64) (*models.SmartListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.listItems[listID] {
		if it.ID == itemID {
			cp := *it
			if p, ok := f.products[it.ProductID]; ok {
				cp.ProductName = p.Name
				cp.ProductPrice = p.Price
				cp.ProductImage = p.Image
			}
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SetSmartListItemQuantity(ctx context.Context, itemID, listID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.listItems[listID] {
		if it.ID == itemID {
			it.Quantity = quantity
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteSmartListItem(ctx context.Context, itemID, listID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.listItems[listID]
	for i, it := range items {
		if it.ID == itemID {
			f.listItems[listID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// --- OrderStore ---

func (f *fakeStore) insertOrder(order *models.Order, items []models.OrderItem) error {
	if f.refCollisions > 0 {
		f.refCollisions--
		return store.ErrDuplicateKey
	}
	order.ID = f.id()
	order.CreatedAt = time.Now()
	cp := *order
	f.orders = append(f.orders, &cp)
	for i := range items {
		items[i].ID = f.id()
		items[i].OrderID = order.ID
	}
	f.orderItems[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (f *fakeStore) CreateOrderFromCart(ctx context.Context, order *models.Order, items []models.OrderItem, cartID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertOrder(order, items); err != nil {
		return err
	}
	f.cartItems[cartID] = nil
	return nil
}

func (f *fakeStore) CreateOrderFromSmartList(ctx context.Context, order *models.Order, items []models.OrderItem, listID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertOrder(order, items); err != nil {
		return err
	}
	f.listItems[listID] = nil
	return nil
}

func (f *fakeStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, *f.orders[i])
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id, userID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id && o.UserID == userID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.orderItems[orderID]...), nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, orderID, userID int64, status string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID && o.UserID == userID {
			o.Status = status
			o.Progress = progress
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetOrderSummary(ctx context.Context, userID int64) (int64, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	total := decimal.Zero
	for _, o := range f.orders {
		if o.UserID == userID {
			count++
			total = total.Add(o.Total)
		}
	}
	return count, total, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

// --- CatalogStore ---

func (f *fakeStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.sortedProducts() {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Slug == product.Slug {
			return store.ErrDuplicateKey
		}
	}
	product.ID = f.id()
	product.CreatedAt = time.Now()
	cp := *product
	f.products[cp.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.products[product.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *product
	cp.Slug = existing.Slug
	f.products[cp.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Category
	for _, c := range f.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, category *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == category.Name {
			return store.ErrDuplicateKey
		}
	}
	category.ID = f.id()
	cp := *category
	f.categories = append(f.categories, &cp)
	return nil
}

// fakeCache is an in-memory ListCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	misses  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetList(ctx context.Context, name string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[name]
	if !ok {
		c.misses++
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetList(ctx context.Context, name string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = raw
	return nil
}

func (c *fakeCache) InvalidateLists(ctx context.Context, names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		delete(c.entries, name)
	}
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*models.OrderEvent
}

func (p *fakePublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(eventType string) []*models.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.OrderEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

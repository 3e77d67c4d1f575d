package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// DefaultSmartListName is used when a create request carries no name.
const DefaultSmartListName = "Default List"

// SmartListStore is the slice of the store the smart-list service needs.
type SmartListStore interface {
	ListSmartLists(ctx context.Context, userID int64) ([]models.SmartList, error)
	GetOrCreateSmartList(ctx context.Context, userID int64, name string) (*models.SmartList, bool, error)
	GetSmartList(ctx context.Context, id, userID int64) (*models.SmartList, error)
	DeleteSmartList(ctx context.Context, id, userID int64) error
	GetSmartListItems(ctx context.Context, listID int64) ([]models.SmartListItem, error)
	UpsertSmartListItem(ctx context.Context, listID, productID int64, quantity int) (*models.SmartListItem, error)
	GetSmartListItem(ctx context.Context, itemID, listID int64) (*models.SmartListItem, error)
	SetSmartListItemQuantity(ctx context.Context, itemID, listID int64, quantity int) error
	DeleteSmartListItem(ctx context.Context, itemID, listID int64) error
}

// SmartListService owns the named, non-reserving wish lists. None of its
// operations ever touch product stock.
type SmartListService struct {
	store     SmartListStore
	resolver  *Resolver
	mediaBase string
	logger    *zap.Logger
}

// NewSmartListService creates a new smart-list service
func NewSmartListService(store SmartListStore, resolver *Resolver, mediaBase string) *SmartListService {
	return &SmartListService{
		store:     store,
		resolver:  resolver,
		mediaBase: mediaBase,
		logger:    util.GetLogger(),
	}
}

// List returns the user's smart lists, newest first, with nested product
// snapshots.
func (s *SmartListService) List(ctx context.Context, userID int64) ([]SmartListView, error) {
	ctx, span := util.StartSpan(ctx, "SmartListService.List")
	defer span.End()

	lists, err := s.store.ListSmartLists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list smart lists: %w", err)
	}

	views := make([]SmartListView, 0, len(lists))
	for i := range lists {
		view, err := s.buildView(ctx, &lists[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Create returns the user's list with the given name, creating it when
// absent. The bool reports whether a new list was created.
func (s *SmartListService) Create(ctx context.Context, userID int64, name string) (*SmartListView, bool, error) {
	ctx, span := util.StartSpan(ctx, "SmartListService.Create")
	defer span.End()

	if name == "" {
		name = DefaultSmartListName
	}

	list, created, err := s.store.GetOrCreateSmartList(ctx, userID, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create smart list: %w", err)
	}
	if created {
		s.logger.Info("Smart list created",
			zap.Int64("user_id", userID),
			zap.String("name", name))
	}

	view, err := s.buildView(ctx, list)
	if err != nil {
		return nil, false, err
	}
	return view, created, nil
}

// Get retrieves one list scoped to the requesting user.
func (s *SmartListService) Get(ctx context.Context, userID, listID int64) (*SmartListView, error) {
	ctx, span := util.StartSpan(ctx, "SmartListService.Get")
	defer span.End()

	list, err := s.store.GetSmartList(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("smart list not found")
		}
		return nil, err
	}
	return s.buildView(ctx, list)
}

// Delete removes a list and its items.
func (s *SmartListService) Delete(ctx context.Context, userID, listID int64) error {
	ctx, span := util.StartSpan(ctx, "SmartListService.Delete")
	defer span.End()

	if err := s.store.DeleteSmartList(ctx, listID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("smart list not found")
		}
		return err
	}
	return nil
}

// AddItem resolves the identifier and upserts the line; quantities
// accumulate on repeat adds. Stock is never checked or deducted: a smart
// list is a wish list, not an inventory hold.
func (s *SmartListService) AddItem(ctx context.Context, userID, listID int64, identifier string, quantity int) (*SmartListItemView, error) {
	ctx, span := util.StartSpan(ctx, "SmartListService.AddItem")
	defer span.End()

	if identifier == "" {
		return nil, invalid("product identifier required")
	}
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	list, err := s.store.GetSmartList(ctx, listID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("smart list not found")
		}
		return nil, err
	}

	product, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	item, err := s.store.UpsertSmartListItem(ctx, list.ID, product.ID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add smart list item: %w", err)
	}

	return &SmartListItemView{
		ID: item.ID,
		Product: ProductView{
			ID:    product.ID,
			Name:  product.Name,
			Price: product.Price,
			Image: imageURL(s.mediaBase, product.Image),
		},
		Quantity: item.Quantity,
	}, nil
}

// UpdateItem sets a line to an absolute quantity.
func (s *SmartListService) UpdateItem(ctx context.Context, userID, listID, itemID int64, quantity int) (*SmartListItemView, error) {
	ctx, span := util.StartSpan(ctx, "SmartListService.UpdateItem")
	defer span.End()

	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	if _, err := s.store.GetSmartList(ctx, listID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("smart list not found")
		}
		return nil, err
	}

	if err := s.store.SetSmartListItemQuantity(ctx, itemID, listID, quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("smart list item not found")
		}
		return nil, err
	}

	item, err := s.store.GetSmartListItem(ctx, itemID, listID)
	if err != nil {
		return nil, err
	}
	return &SmartListItemView{
		ID: item.ID,
		Product: ProductView{
			ID:    item.ProductID,
			Name:  item.ProductName,
			Price: item.ProductPrice,
			Image: imageURL(s.mediaBase, item.ProductImage),
		},
		Quantity: item.Quantity,
	}, nil
}

// RemoveItem deletes a line.
func (s *SmartListService) RemoveItem(ctx context.Context, userID, listID, itemID int64) error {
	ctx, span := util.StartSpan(ctx, "SmartListService.RemoveItem")
	defer span.End()

	if _, err := s.store.GetSmartList(ctx, listID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("smart list not found")
		}
		return err
	}

	if err := s.store.DeleteSmartListItem(ctx, itemID, listID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("smart list item not found")
		}
		return err
	}
	return nil
}

func (s *SmartListService) buildView(ctx context.Context, list *models.SmartList) (*SmartListView, error) {
	items, err := s.store.GetSmartListItems(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get smart list items: %w", err)
	}

	view := &SmartListView{
		ID:        list.ID,
		Name:      list.Name,
		CreatedAt: list.CreatedAt.Format(time.RFC3339),
		Items:     make([]SmartListItemView, 0, len(items)),
	}
	for i := range items {
		view.Items = append(view.Items, SmartListItemView{
			ID: items[i].ID,
			Product: ProductView{
				ID:    items[i].ProductID,
				Name:  items[i].ProductName,
				Price: items[i].ProductPrice,
				Image: imageURL(s.mediaBase, items[i].ProductImage),
			},
			Quantity: items[i].Quantity,
		})
	}
	return view, nil
}

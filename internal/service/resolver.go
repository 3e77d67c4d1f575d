package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// ProductFinder is the slice of the store the resolver reads from.
type ProductFinder interface {
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetProductBySlugFold(ctx context.Context, slug string) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
}

// Resolver maps a loosely-typed caller identifier (slug, numeric id, name
// fragment, or a composite like "beverage-2") onto a single product. It is
// read-only and shared by every cart and smart-list mutation.
type Resolver struct {
	store  ProductFinder
	logger *zap.Logger
}

// NewResolver creates a new product resolver
func NewResolver(store ProductFinder) *Resolver {
	return &Resolver{
		store:  store,
		logger: util.GetLogger(),
	}
}

var separators = []string{"-", "_", ":"}

// Resolve walks the lookup chain; the first hit wins:
//
//  1. exact case-sensitive slug
//  2. case-insensitive slug
//  3. numeric id, when the whole identifier parses as an integer
//  4. case-insensitive substring over slug or name; a single candidate
//     wins, among several an exact (case-insensitive) slug/name match wins,
//     else the lowest id
//  5. split on "-", "_" or ":"; numeric suffix as id, else substring search
//     on the prefix
//
// Ambiguity never errors; the chain degrades to a best-effort match or a
// NotFoundError. Resolving the same identifier twice with no catalog change
// in between gives the same answer.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*models.Product, error) {
	ident := strings.TrimSpace(identifier)
	if ident == "" {
		return nil, notFound("no product matches the given query")
	}

	if product, err := r.store.GetProductBySlug(ctx, ident); err == nil {
		return product, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if product, err := r.store.GetProductBySlugFold(ctx, ident); err == nil {
		return product, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if id, convErr := strconv.ParseInt(ident, 10, 64); convErr == nil {
		if product, err := r.store.GetProductByID(ctx, id); err == nil {
			return product, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	product, err := r.broadSearch(ctx, ident)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}

	product, err = r.splitSearch(ctx, ident)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}

	r.logger.Debug("Product resolution failed", zap.String("identifier", identifier))
	return nil, notFound("no product matches the given query")
}

// broadSearch is chain step 4. Candidates come back ordered by id, so the
// tie-break among many loose matches is deterministic: equality beats
// containment, then the lowest id wins.
func (r *Resolver) broadSearch(ctx context.Context, ident string) (*models.Product, error) {
	candidates, err := r.store.SearchProducts(ctx, ident)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	}

	lower := strings.ToLower(ident)
	for i := range candidates {
		if strings.ToLower(candidates[i].Slug) == lower || strings.ToLower(candidates[i].Name) == lower {
			return &candidates[i], nil
		}
	}

	r.logger.Warn("Ambiguous product identifier, picking lowest id",
		zap.String("identifier", ident),
		zap.Int("candidates", len(candidates)),
		zap.Int64("chosen_id", candidates[0].ID))
	return &candidates[0], nil
}

// splitSearch is chain step 5: "prefix-42" tries 42 as an id, then the
// prefix as a substring.
func (r *Resolver) splitSearch(ctx context.Context, ident string) (*models.Product, error) {
	for _, sep := range separators {
		if !strings.Contains(ident, sep) {
			continue
		}
		parts := strings.Split(ident, sep)
		prefix := strings.TrimSpace(parts[0])
		suffix := strings.TrimSpace(parts[len(parts)-1])

		if id, convErr := strconv.ParseInt(suffix, 10, 64); convErr == nil {
			if product, err := r.store.GetProductByID(ctx, id); err == nil {
				return product, nil
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}

		if prefix == "" {
			continue
		}
		candidates, err := r.store.SearchProducts(ctx, prefix)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return &candidates[0], nil
		}
	}
	return nil, nil
}

package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/logger"
)

// WishlistStore is the persistence surface for wishlists.
type WishlistStore interface {
	Add(ctx context.Context, userID, productID primitive.ObjectID) error
	Remove(ctx context.Context, userID, productID primitive.ObjectID) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Wishlist, error)
}

// WishlistService manages the per-user product set. Adding the same product
// twice is a no-op at the store level.
type WishlistService struct {
	wishlists WishlistStore
	products  CatalogStore
}

func NewWishlistService(wishlists WishlistStore, products CatalogStore) *WishlistService {
	return &WishlistService{wishlists: wishlists, products: products}
}

func (s *WishlistService) Add(ctx context.Context, userID, productID primitive.ObjectID) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrProductNotFound
		}
		return apperr.Upstream("could not load product", err)
	}
	if err := s.wishlists.Add(ctx, userID, productID); err != nil {
		return apperr.Upstream("could not update wishlist", err)
	}
	return nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, productID primitive.ObjectID) error {
	err := s.wishlists.Remove(ctx, userID, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		// Removing from a list that never existed is not an error.
		return nil
	}
	if err != nil {
		return apperr.Upstream("could not update wishlist", err)
	}
	return nil
}

// Get resolves the wishlist to full products. Entries whose product has since
// been deleted are skipped.
func (s *WishlistService) Get(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	w, err := s.wishlists.FindByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, apperr.Upstream("could not load wishlist", err)
	}

	out := make([]models.Product, 0, len(w.Products))
	for _, pid := range w.Products {
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				logger.Warn("wishlist: product lookup failed", "product", pid.Hex(), "error", err)
			}
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

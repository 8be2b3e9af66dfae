package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/logger"
)

var (
	ErrProductNotFound = apperr.NotFound("product not found")
	ErrCartItemMissing = apperr.NotFound("item is not in the cart")
)

// CartStore is the persistence surface for cart documents.
type CartStore interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) error
	SetItemQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID primitive.ObjectID, productID string) error
	ReplaceItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error
	DeleteIfEmpty(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

// CartService owns cart mutations and the canonical read view. Every read
// passes through the normalizer, and legacy-shaped documents are migrated to
// the canonical shape as a side effect of being read.
type CartService struct {
	carts      CartStore
	normalizer *CartNormalizer
	products   ProductResolver
}

func NewCartService(carts CartStore, normalizer *CartNormalizer, products ProductResolver) *CartService {
	return &CartService{carts: carts, normalizer: normalizer, products: products}
}

// Get returns the canonical cart view; a user without a cart gets an empty one.
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (models.NormalizedCart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.NormalizedCart{Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.NormalizedCart{}, apperr.Upstream("could not load cart", err)
	}

	norm := s.normalizer.NormalizeRaw(ctx, cart.Items)

	if hasLegacyShapes(cart.Items) {
		if err := s.carts.ReplaceItems(ctx, userID, norm.Items); err != nil {
			logger.Warn("cart: canonical migration failed", "user", userID.Hex(), "error", err)
		}
	}
	return norm, nil
}

// Add puts quantity units of a product into the cart, snapshotting its title,
// price and image.
func (s *CartService) Add(ctx context.Context, userID primitive.ObjectID, productRef string, quantity int) (models.NormalizedCart, error) {
	if quantity < 1 {
		return models.NormalizedCart{}, apperr.Validation("quantity must be at least 1")
	}

	product := s.lookupProduct(ctx, productRef)
	if product == nil {
		return models.NormalizedCart{}, ErrProductNotFound
	}

	price := product.Price
	item := models.CartItem{
		ProductID: product.ID.Hex(),
		Title:     product.Title,
		Price:     &price,
		Quantity:  quantity,
		Image:     product.Image,
	}

	if err := s.carts.AddItem(ctx, userID, item); err != nil {
		return models.NormalizedCart{}, apperr.Upstream("could not update cart", err)
	}
	return s.Get(ctx, userID)
}

// SetQuantity updates one line; zero or below removes it, and removing the
// last line deletes the cart document.
func (s *CartService) SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) (models.NormalizedCart, error) {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}

	if err := s.carts.SetItemQuantity(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.NormalizedCart{}, ErrCartItemMissing
		}
		return models.NormalizedCart{}, apperr.Upstream("could not update cart", err)
	}
	return s.Get(ctx, userID)
}

// Remove drops one line from the cart.
func (s *CartService) Remove(ctx context.Context, userID primitive.ObjectID, productID string) (models.NormalizedCart, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.NormalizedCart{}, ErrCartItemMissing
		}
		return models.NormalizedCart{}, apperr.Upstream("could not update cart", err)
	}
	if err := s.carts.DeleteIfEmpty(ctx, userID); err != nil {
		logger.Warn("cart: empty-cart cleanup failed", "user", userID.Hex(), "error", err)
	}
	return s.Get(ctx, userID)
}

// Clear deletes the cart outright, as after a successful checkout.
func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return apperr.Upstream("could not clear cart", err)
	}
	return nil
}

func (s *CartService) lookupProduct(ctx context.Context, ref string) *models.Product {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		if p, err := s.products.FindByID(ctx, oid); err == nil {
			return p
		}
		return nil
	}
	if p, err := s.products.FindByAltID(ctx, ref); err == nil {
		return p
	}
	return nil
}

// hasLegacyShapes reports whether any stored line is not a canonical document.
func hasLegacyShapes(items []bson.RawValue) bool {
	for _, rv := range items {
		if rv.Type != bsontype.EmbeddedDocument {
			return true
		}
		if _, err := bson.Raw(rv.Value).LookupErr("product"); err == nil {
			return true
		}
	}
	return false
}

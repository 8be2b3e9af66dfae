package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
)

var ErrAddressNotFound = apperr.NotFound("address not found")

// AddressStore is the persistence surface for the address book.
type AddressStore interface {
	Create(ctx context.Context, a *models.Address) error
	Update(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Address, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error)
	SetDefault(ctx context.Context, userID, id primitive.ObjectID) error
	DefaultForUser(ctx context.Context, userID primitive.ObjectID) (*models.Address, error)
}

// AddressService manages a user's saved shipping addresses. Every operation
// is scoped to the owning user; ids from other users read as not found.
type AddressService struct {
	addresses AddressStore
}

func NewAddressService(addresses AddressStore) *AddressService {
	return &AddressService{addresses: addresses}
}

func (s *AddressService) Create(ctx context.Context, userID primitive.ObjectID, a *models.Address) (*models.Address, error) {
	if err := validateAddress(a); err != nil {
		return nil, err
	}
	a.UserID = userID

	existing, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("could not load addresses", err)
	}
	// The first saved address becomes the default automatically.
	if len(existing) == 0 {
		a.IsDefault = true
	}

	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, apperr.Upstream("could not save address", err)
	}
	return a, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id primitive.ObjectID, a *models.Address) (*models.Address, error) {
	if err := validateAddress(a); err != nil {
		return nil, err
	}

	current, err := s.addresses.FindByID(ctx, userID, id)
	if err != nil {
		return nil, s.storeErr(err)
	}

	a.ID = id
	a.UserID = userID
	a.IsDefault = current.IsDefault
	if err := s.addresses.Update(ctx, a); err != nil {
		return nil, s.storeErr(err)
	}
	return a, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.addresses.Delete(ctx, userID, id); err != nil {
		return s.storeErr(err)
	}
	return nil
}

func (s *AddressService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	out, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("could not load addresses", err)
	}
	return out, nil
}

// MakeDefault marks one address as the checkout default, clearing the flag
// on the others.
func (s *AddressService) MakeDefault(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.addresses.SetDefault(ctx, userID, id); err != nil {
		return s.storeErr(err)
	}
	return nil
}

func (s *AddressService) storeErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrAddressNotFound
	}
	return apperr.Upstream("address store failure", err)
}

func validateAddress(a *models.Address) error {
	switch {
	case a == nil:
		return apperr.Validation("address payload is required")
	case strings.TrimSpace(a.Line1) == "":
		return apperr.Validation("address line 1 is required")
	case strings.TrimSpace(a.City) == "":
		return apperr.Validation("city is required")
	case strings.TrimSpace(a.PostalCode) == "":
		return apperr.Validation("postal code is required")
	}
	return nil
}

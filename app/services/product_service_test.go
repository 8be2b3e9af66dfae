package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/storage"
)

type fakeCatalogStore struct {
	byID map[primitive.ObjectID]*models.Product
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{byID: map[primitive.ObjectID]*models.Product{}}
}

func (f *fakeCatalogStore) Create(_ context.Context, p *models.Product) error {
	p.ID = primitive.NewObjectID()
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeCatalogStore) Update(_ context.Context, p *models.Product) error {
	if _, ok := f.byID[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeCatalogStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCatalogStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalogStore) FindByAltID(_ context.Context, ref string) (*models.Product, error) {
	for _, p := range f.byID {
		if p.SKU == ref || p.Slug == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogStore) List(_ context.Context, category string, page, limit int64) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range f.byID {
		if category == "" || p.Category == category {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

// fakeDisk records image writes. Only the methods UploadImage touches are
// implemented; the embedded interface panics on anything else.
type fakeDisk struct {
	storage.Disk
	files map[string][]byte
}

func (f *fakeDisk) Put(path string, content []byte) error {
	f.files[path] = content
	return nil
}

func (f *fakeDisk) URL(path string) string { return "https://cdn.test/" + path }

func TestCreateProductGeneratesSlug(t *testing.T) {
	svc := NewProductService(newFakeCatalogStore())

	p, err := svc.Create(context.Background(), &models.Product{
		Title: "Banarasi Silk  Saree!",
		Price: 4999,
		Stock: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "banarasi-silk-saree", p.Slug)
	assert.False(t, p.ID.IsZero())
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	svc := NewProductService(newFakeCatalogStore())

	_, err := svc.Create(context.Background(), &models.Product{Title: "   "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), &models.Product{Title: "ok", Price: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGetByRef(t *testing.T) {
	store := newFakeCatalogStore()
	svc := NewProductService(store)

	created, err := svc.Create(context.Background(), &models.Product{
		Title: "Jhumka Earrings",
		SKU:   "JWL-001",
		Price: 499,
		Stock: 5,
	})
	require.NoError(t, err)

	byID, err := svc.GetByRef(context.Background(), created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	bySKU, err := svc.GetByRef(context.Background(), "JWL-001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySKU.ID)

	bySlug, err := svc.GetByRef(context.Background(), "jhumka-earrings")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	_, err = svc.GetByRef(context.Background(), "no-such-thing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListClampsPaging(t *testing.T) {
	svc := NewProductService(newFakeCatalogStore())

	page, err := svc.List(context.Background(), "", -3, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Page)
	assert.EqualValues(t, 20, page.PerPage)
}

func TestUpdateMissingProduct(t *testing.T) {
	svc := NewProductService(newFakeCatalogStore())

	_, err := svc.Update(context.Background(), primitive.NewObjectID(), &models.Product{
		Title: "ghost",
		Price: 1,
	})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUploadImage(t *testing.T) {
	store := newFakeCatalogStore()
	disk := &fakeDisk{files: map[string][]byte{}}
	svc := NewProductService(store).WithDisk(disk)

	created, err := svc.Create(context.Background(), &models.Product{
		Title: "Potli Bag",
		Price: 799,
		Stock: 3,
	})
	require.NoError(t, err)

	updated, err := svc.UploadImage(context.Background(), created.ID, `..\..\hero image.jpg`, []byte("jpeg-bytes"))
	require.NoError(t, err)

	loc := "products/" + created.ID.Hex() + "/hero image.jpg"
	assert.Equal(t, []byte("jpeg-bytes"), disk.files[loc])
	assert.Equal(t, "https://cdn.test/"+loc, updated.Image)

	stored, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Image, stored.Image)
}

func TestUploadImageEmptyPayload(t *testing.T) {
	svc := NewProductService(newFakeCatalogStore())

	_, err := svc.UploadImage(context.Background(), primitive.NewObjectID(), "x.jpg", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
)

type fakeProducts struct {
	byID  map[primitive.ObjectID]*models.Product
	byAlt map[string]*models.Product
}

func (f *fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeProducts) FindByAltID(_ context.Context, ref string) (*models.Product, error) {
	if p, ok := f.byAlt[ref]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotFound
}

func rawValue(t *testing.T, v interface{}) bson.RawValue {
	t.Helper()
	bt, data, err := bson.MarshalValue(v)
	require.NoError(t, err)
	return bson.RawValue{Type: bt, Value: data}
}

func newNormalizerFixture() (*CartNormalizer, *fakeProducts, primitive.ObjectID) {
	pid := primitive.NewObjectID()
	products := &fakeProducts{
		byID: map[primitive.ObjectID]*models.Product{
			pid: {ID: pid, Title: "Silk Scarf", Price: 30, Image: "scarf.jpg", SKU: "SCARF-1", Slug: "silk-scarf"},
		},
		byAlt: map[string]*models.Product{},
	}
	products.byAlt["SCARF-1"] = products.byID[pid]
	products.byAlt["silk-scarf"] = products.byID[pid]
	return NewCartNormalizer(products), products, pid
}

func TestNormalizeCanonicalLine(t *testing.T) {
	n, _, _ := newNormalizerFixture()
	price := 12.5

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, bson.M{"productId": "abc", "title": "Mug", "price": price, "quantity": 2, "image": "mug.jpg"}),
	})

	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.Equal(t, "abc", it.ProductID)
	assert.Equal(t, "Mug", it.Title)
	require.NotNil(t, it.Price)
	assert.Equal(t, price, *it.Price)
	assert.Equal(t, 2, it.Quantity)
	require.NotNil(t, it.Subtotal)
	assert.InDelta(t, 25.0, *it.Subtotal, 1e-9)
	assert.InDelta(t, 25.0, out.Subtotal, 1e-9)
}

func TestNormalizeStringIDResolvesProduct(t *testing.T) {
	n, _, pid := newNormalizerFixture()

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, pid.Hex()),
	})

	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.Equal(t, pid.Hex(), it.ProductID)
	assert.Equal(t, "Silk Scarf", it.Title)
	require.NotNil(t, it.Price)
	assert.Equal(t, 30.0, *it.Price)
	assert.Equal(t, 1, it.Quantity, "bare references default to quantity 1")
	assert.InDelta(t, 30.0, out.Subtotal, 1e-9)
}

func TestNormalizeSKUFallback(t *testing.T) {
	n, _, _ := newNormalizerFixture()

	// "SCARF-1" is not valid ObjectID hex, so the alt lookup kicks in.
	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, "SCARF-1"),
	})

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Silk Scarf", out.Items[0].Title)
}

func TestNormalizeNestedShape(t *testing.T) {
	n, _, pid := newNormalizerFixture()

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, bson.M{
			"product":  bson.M{"_id": pid, "title": "Silk Scarf", "price": 30.0, "image": "scarf.jpg"},
			"quantity": 3,
		}),
	})

	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.Equal(t, pid.Hex(), it.ProductID)
	assert.Equal(t, "Silk Scarf", it.Title)
	assert.Equal(t, 3, it.Quantity)
	require.NotNil(t, it.Subtotal)
	assert.InDelta(t, 90.0, *it.Subtotal, 1e-9)
}

func TestNormalizePreservesPartialOnFailedResolution(t *testing.T) {
	n, _, _ := newNormalizerFixture()

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, bson.M{"productId": "ghost-sku", "quantity": 2}),
	})

	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.Equal(t, "ghost-sku", it.ProductID, "unresolvable line keeps its data")
	assert.Empty(t, it.Title)
	assert.Nil(t, it.Price)
	assert.Nil(t, it.Subtotal, "unknown price yields nil subtotal")
	assert.Equal(t, 2, it.Quantity)
	assert.Zero(t, out.Subtotal, "unknown subtotals count as zero")
}

func TestNormalizeMixedCartSubtotal(t *testing.T) {
	n, _, pid := newNormalizerFixture()

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, bson.M{"productId": "abc", "title": "Mug", "price": 10.0, "quantity": 2}),
		rawValue(t, pid.Hex()),                    // resolves to 30
		rawValue(t, bson.M{"productId": "ghost"}), // unresolvable, no price
	})

	require.Len(t, out.Items, 3)
	assert.InDelta(t, 50.0, out.Subtotal, 1e-9)
}

func TestNormalizeIdempotent(t *testing.T) {
	n, _, pid := newNormalizerFixture()

	first := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, bson.M{"productId": "abc", "title": "Mug", "price": 10.0, "quantity": 2}),
		rawValue(t, pid.Hex()),
		rawValue(t, bson.M{"productId": "ghost", "quantity": 1}),
	})

	second := n.NormalizeItems(context.Background(), first.Items)
	assert.Equal(t, first, second, "re-normalizing canonical output must be a fixed point")

	third := n.NormalizeItems(context.Background(), second.Items)
	assert.Equal(t, second, third)
}

func TestNormalizeWithoutResolver(t *testing.T) {
	n := NewCartNormalizer(nil)

	out := n.NormalizeRaw(context.Background(), []bson.RawValue{
		rawValue(t, "any-ref"),
	})

	require.Len(t, out.Items, 1)
	assert.Equal(t, "any-ref", out.Items[0].ProductID)
}

package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/pkg/logger"
)

// ProductResolver resolves product references for cart lines that carry no
// embedded data.
type ProductResolver interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByAltID(ctx context.Context, ref string) (*models.Product, error)
}

// CartNormalizer folds the legacy cart line shapes into the canonical
// {productId, title, price, quantity, image} form at the persistence
// boundary. Recognized shapes, in order:
//
//  1. canonical document — productId plus any of title/price/quantity/image
//  2. bare product reference — a plain string or ObjectID element
//  3. nested document — {product: {...}, quantity}
//
// Embedded data wins; otherwise the reference is resolved by ObjectID first,
// then by SKU/slug. A line whose reference cannot be resolved keeps whatever
// partial data it had rather than being dropped. Normalization is idempotent.
type CartNormalizer struct {
	products ProductResolver
}

func NewCartNormalizer(products ProductResolver) *CartNormalizer {
	return &CartNormalizer{products: products}
}

// rawLine covers shapes 1 and 3 in one decode.
type rawLine struct {
	ProductID bson.RawValue `bson:"productId"`
	Title     string        `bson:"title"`
	Price     *float64      `bson:"price"`
	Quantity  int           `bson:"quantity"`
	Image     string        `bson:"image"`
	Product   *rawProduct   `bson:"product"`
}

type rawProduct struct {
	ID        bson.RawValue `bson:"_id"`
	ProductID bson.RawValue `bson:"productId"`
	Title     string        `bson:"title"`
	Price     *float64      `bson:"price"`
	Image     string        `bson:"image"`
}

// NormalizeRaw converts raw stored lines into the canonical cart view.
// Undecodable lines are skipped with a log entry; everything else is
// preserved, resolved or not.
func (n *CartNormalizer) NormalizeRaw(ctx context.Context, raw []bson.RawValue) models.NormalizedCart {
	items := make([]models.CartItem, 0, len(raw))

	for _, rv := range raw {
		switch rv.Type {
		case bsontype.String:
			items = append(items, n.resolve(ctx, models.CartItem{
				ProductID: rv.StringValue(),
				Quantity:  1,
			}))

		case bsontype.ObjectID:
			items = append(items, n.resolve(ctx, models.CartItem{
				ProductID: rv.ObjectID().Hex(),
				Quantity:  1,
			}))

		case bsontype.EmbeddedDocument:
			var line rawLine
			if err := bson.Unmarshal(rv.Value, &line); err != nil {
				logger.Warn("cart: undecodable line skipped", "error", err)
				continue
			}
			items = append(items, n.resolve(ctx, flattenLine(line)))

		default:
			logger.Warn("cart: unrecognized line type skipped", "bson_type", rv.Type.String())
		}
	}

	return finishCart(items)
}

// NormalizeItems re-normalizes already-canonical items. Running it over the
// output of a previous normalization yields identical results.
func (n *CartNormalizer) NormalizeItems(ctx context.Context, items []models.CartItem) models.NormalizedCart {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		it.Subtotal = nil // recomputed below
		out = append(out, n.resolve(ctx, it))
	}
	return finishCart(out)
}

// flattenLine collapses the nested {product:{...}, quantity} variant onto
// the canonical field set.
func flattenLine(line rawLine) models.CartItem {
	item := models.CartItem{
		ProductID: refString(line.ProductID),
		Title:     line.Title,
		Price:     line.Price,
		Quantity:  line.Quantity,
		Image:     line.Image,
	}

	if p := line.Product; p != nil {
		if item.ProductID == "" {
			if ref := refString(p.ID); ref != "" {
				item.ProductID = ref
			} else {
				item.ProductID = refString(p.ProductID)
			}
		}
		if item.Title == "" {
			item.Title = p.Title
		}
		if item.Price == nil {
			item.Price = p.Price
		}
		if item.Image == "" {
			item.Image = p.Image
		}
	}

	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return item
}

// resolve fills in title/price/image from the catalog when the line carries
// only a reference. Embedded data is never overwritten, and a failed lookup
// leaves the partial line untouched.
func (n *CartNormalizer) resolve(ctx context.Context, item models.CartItem) models.CartItem {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	needsData := item.Title == "" || item.Price == nil
	if !needsData || item.ProductID == "" || n.products == nil {
		return withSubtotal(item)
	}

	product := n.lookup(ctx, item.ProductID)
	if product == nil {
		return withSubtotal(item) // keep partial data
	}

	if item.Title == "" {
		item.Title = product.Title
	}
	if item.Price == nil {
		price := product.Price
		item.Price = &price
	}
	if item.Image == "" {
		item.Image = product.Image
	}
	return withSubtotal(item)
}

func (n *CartNormalizer) lookup(ctx context.Context, ref string) *models.Product {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		if p, err := n.products.FindByID(ctx, oid); err == nil {
			return p
		}
		return nil
	}
	// Not an ObjectID — try the alternate identifiers.
	if p, err := n.products.FindByAltID(ctx, ref); err == nil {
		return p
	}
	return nil
}

func withSubtotal(item models.CartItem) models.CartItem {
	if item.Price != nil {
		sub := *item.Price * float64(item.Quantity)
		item.Subtotal = &sub
	}
	return item
}

func finishCart(items []models.CartItem) models.NormalizedCart {
	var subtotal float64
	for _, it := range items {
		if it.Subtotal != nil {
			subtotal += *it.Subtotal
		}
	}
	return models.NormalizedCart{Items: items, Subtotal: subtotal}
}

func refString(rv bson.RawValue) string {
	switch rv.Type {
	case bsontype.String:
		return rv.StringValue()
	case bsontype.ObjectID:
		return rv.ObjectID().Hex()
	default:
		return ""
	}
}

package seeders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charvilabs/charvi/app/models"
)

func init() {
	Register("catalog", SeedCatalog)
}

// SeedCatalog inserts a small starter catalog, keyed by SKU so re-running the
// seeder never duplicates products.
func SeedCatalog(ctx context.Context, db *mongo.Database) error {
	products := []models.Product{
		{
			Title:       "Banarasi Silk Saree",
			Slug:        "banarasi-silk-saree",
			SKU:         "SAR-BAN-001",
			Description: "Handwoven Banarasi silk with zari border.",
			Category:    "sarees",
			Price:       4999,
			Stock:       25,
		},
		{
			Title:       "Chanderi Cotton Saree",
			Slug:        "chanderi-cotton-saree",
			SKU:         "SAR-CHA-002",
			Description: "Lightweight Chanderi cotton for daily wear.",
			Category:    "sarees",
			Price:       1899,
			Stock:       60,
		},
		{
			Title:       "Anarkali Kurta Set",
			Slug:        "anarkali-kurta-set",
			SKU:         "KUR-ANA-001",
			Description: "Floor-length anarkali with churidar and dupatta.",
			Category:    "kurtas",
			Price:       2499,
			Stock:       40,
		},
		{
			Title:       "Oxidised Jhumka Earrings",
			Slug:        "oxidised-jhumka-earrings",
			SKU:         "JWL-JHU-001",
			Description: "Silver-tone oxidised jhumkas, nickel free.",
			Category:    "jewellery",
			Price:       499,
			Stock:       150,
		},
		{
			Title:       "Embroidered Potli Bag",
			Slug:        "embroidered-potli-bag",
			SKU:         "ACC-POT-001",
			Description: "Zari-embroidered potli with drawstring closure.",
			Category:    "accessories",
			Price:       799,
			Stock:       80,
		},
	}

	col := db.Collection("products")
	now := time.Now().UTC()
	for _, p := range products {
		_, err := col.UpdateOne(ctx,
			bson.M{"sku": p.SKU},
			bson.M{"$setOnInsert": bson.M{
				"title":       p.Title,
				"slug":        p.Slug,
				"sku":         p.SKU,
				"description": p.Description,
				"category":    p.Category,
				"price":       p.Price,
				"stock":       p.Stock,
				"image":       "",
				"created_at":  now,
				"updated_at":  now,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

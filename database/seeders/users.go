package seeders

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/auth"
)

func init() {
	Register("admin-user", SeedAdminUser)
}

// SeedAdminUser ensures one admin account exists. Email comes from
// ADMIN_EMAIL, the initial password from ADMIN_PASSWORD; both fall back to
// development defaults. An existing account is left untouched so a rotated
// password never reverts.
func SeedAdminUser(ctx context.Context, db *mongo.Database) error {
	email := config.AdminEmail()
	if email == "" {
		email = "admin@charvi.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "change-me-please"
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Collection("users").UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{
			"name":       "Charvi Admin",
			"email":      email,
			"password":   hash,
			"role":       "admin",
			"created_at": now,
			"updated_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

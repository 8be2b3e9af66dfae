package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/database"
	"github.com/charvilabs/charvi/database/seeders"
	"github.com/charvilabs/charvi/pkg/mongodb"
)

// withDB loads config, connects to Mongo, runs fn and disconnects.
func withDB(fn func(ctx context.Context, db *mongo.Database) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, db, err := mongodb.Connect(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()

	return fn(ctx, db)
}

// charvi db:index
var dbIndexCmd = &cobra.Command{
	Use:   "db:index",
	Short: "Create every index the application relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *mongo.Database) error {
			fmt.Println("Ensuring indexes…")
			if err := database.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			fmt.Println("✅  Indexes in place.")
			return nil
		})
	},
}

// charvi seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *mongo.Database) error {
			fmt.Println("Running seeders…")
			return seeders.RunAll(ctx, db)
		})
	},
}

// Package repositories holds the MongoDB persistence layer. Each repository
// owns one collection and exposes the narrow operation set its service needs;
// concurrent writers are coordinated only by Mongo's atomic document updates.
package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("repositories: document not found")

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

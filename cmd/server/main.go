package main

import (
	"log"

	"github.com/charvilabs/charvi/internal/server"

	// Import seeders so `charvi seed` and the server binary agree on what
	// gets registered.
	_ "github.com/charvilabs/charvi/database/seeders"
)

func main() {
	if err := server.Start(); err != nil {
		log.Fatal(err)
	}
}

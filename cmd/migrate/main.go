// Command migrate applies the database schema.
package main

import (
	"log"

	"onesong/internal/config"
	"onesong/internal/database"
	"onesong/internal/seed"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Connect only migrates outside production; run it explicitly here so
	// this command works against production databases too.
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := seed.Genres(db); err != nil {
		log.Fatalf("Genre catalog seeding failed: %v", err)
	}

	log.Println("Migration complete")
}

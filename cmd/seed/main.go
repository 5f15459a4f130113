// Command main runs the database seeder.
package main

import (
	"flag"
	"log"

	"onesong/internal/bootstrap"
	"onesong/internal/config"
	"onesong/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of demo users to create")
	numDays := flag.Int("days", 7, "Number of past days to seed with exchanges")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d users, %d days, clean=%v\n", *numUsers, *numDays, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedGenres: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		// The genre catalog survives ClearAll but reseed in case the
		// database was empty to begin with.
		if err := seed.Genres(db); err != nil {
			log.Fatalf("Genre seeding failed: %v", err)
		}
	}

	users, err := s.SeedUsers(*numUsers)
	if err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}

	if err := s.SeedExchangeDays(users, *numDays); err != nil {
		log.Fatalf("Exchange seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}

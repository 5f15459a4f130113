// Package bootstrap wires runtime dependencies for the application commands.
package bootstrap

import (
	"fmt"

	"onesong/internal/cache"
	"onesong/internal/config"
	"onesong/internal/database"
	"onesong/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedGenres bool
}

// InitRuntime connects to DB and Redis and optionally seeds the genre catalog.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedGenres {
		if err := seed.Genres(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed genre catalog: %w", err)
		}
	}

	return db, r, nil
}

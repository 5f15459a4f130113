package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	StatsKeyName  = "stats:daily"
	GenresKeyName = "genres:all"
	PostKeyPrefix = "post:%d"
	UserKeyPrefix = "user:%d"
)

const (
	StatsTTL  = 1 * time.Minute
	GenresTTL = 10 * time.Minute
	PostTTL   = 30 * time.Minute
	UserTTL   = 5 * time.Minute
)

func StatsKey() string {
	return StatsKeyName
}

func GenresKey() string {
	return GenresKeyName
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateStats(ctx context.Context) {
	Invalidate(ctx, StatsKey())
}

func InvalidateGenres(ctx context.Context) {
	Invalidate(ctx, GenresKey())
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"onesong/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// demoPassword is the shared password for all seeded demo accounts.
const demoPassword = "DemoPassword12!"

// youtubeIDs are real video IDs so seeded URLs resolve during manual testing.
var youtubeIDs = []string{
	"dQw4w9WgXcQ", "9bZkp7q19f0", "3JZ_D3ELwOQ", "L_jWHffIx5E", "kXYiU_JCYtU",
	"fJ9rUzIMcZQ", "hTWKbfoikeg", "YQHsXMglC9A", "CevxZvSJLk8", "60ItHLz5WEA",
}

// Seeder populates the database with demo data.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a new Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all exchange data and users. Genres are kept since they
// are a fixed catalog.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"exchanges", "pool_entries", "post_genres", "posts", "tracks",
		"subscription_payments", "user_genres", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	log.Println("cleared existing seed data")
	return nil
}

// SeedUsers creates n demo users, each with one to three preference genres.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	var genres []models.Genre
	if err := s.db.Order("sort_order").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, fmt.Errorf("no genres seeded; run seed.Genres first")
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		user := models.User{
			Username: fmt.Sprintf("%s_%s%d", gofakeit.FirstName(), gofakeit.LastName(), i),
			Email:    fmt.Sprintf("demo%d@onesong.local", i),
			Password: string(hashed),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create demo user %d: %w", i, err)
		}

		picks := s.pickGenres(genres, 1+s.rng.Intn(3))
		if err := s.db.Model(&user).Association("Genres").Append(picks); err != nil {
			return nil, fmt.Errorf("attach genres to user %d: %w", user.ID, err)
		}
		users = append(users, user)
	}

	log.Printf("seeded %d demo users", len(users))
	return users, nil
}

// SeedExchangeDays creates posts, pool entries and exchanges for the past
// `days` days. Roughly half the users post on a given day; posts get paired
// first-come first-served the way the live engine would.
func (s *Seeder) SeedExchangeDays(users []models.User, days int) error {
	if len(users) < 2 {
		return fmt.Errorf("need at least two users to seed exchanges")
	}

	for back := days - 1; back >= 0; back-- {
		date := time.Now().AddDate(0, 0, -back).Format("2006-01-02")

		posters := s.pickUsers(users, len(users)/2+1)
		var dayPosts []models.Post

		for _, user := range posters {
			post, err := s.createDemoPost(user, date)
			if err != nil {
				return err
			}
			dayPosts = append(dayPosts, *post)
		}

		// Pair each poster with the previous poster's entry; the first
		// poster of the day stays waiting until someone else posts.
		for i, post := range dayPosts {
			exchange := models.Exchange{
				RequesterUserID: post.UserID,
				SentPostID:      post.ID,
				ExchangeDate:    date,
			}
			if i > 0 {
				received := dayPosts[i-1]
				exchange.ReceivedPostID = &received.ID
				now := time.Now()
				if err := s.db.Model(&models.PoolEntry{}).
					Where("post_id = ?", received.ID).
					Updates(map[string]any{"is_consumed": true, "consumed_at": &now}).Error; err != nil {
					return fmt.Errorf("consume pool entry for post %d: %w", received.ID, err)
				}
			}
			if err := s.db.Create(&exchange).Error; err != nil {
				return fmt.Errorf("create exchange for post %d: %w", post.ID, err)
			}
		}
	}

	log.Printf("seeded %d days of exchanges", days)
	return nil
}

func (s *Seeder) createDemoPost(user models.User, date string) (*models.Post, error) {
	videoID := youtubeIDs[s.rng.Intn(len(youtubeIDs))]

	var userGenres []models.Genre
	if err := s.db.Model(&user).Association("Genres").Find(&userGenres); err != nil {
		return nil, fmt.Errorf("load genres of user %d: %w", user.ID, err)
	}
	if len(userGenres) == 0 {
		return nil, fmt.Errorf("user %d has no genres", user.ID)
	}
	genre := userGenres[s.rng.Intn(len(userGenres))]

	coverArt := fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
	track := models.Track{
		Title:          gofakeit.HipsterSentence(3),
		Artist:         gofakeit.Name(),
		URL:            fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
		CoverArtURL:    &coverArt,
		PrimaryGenreID: &genre.ID,
	}
	if err := s.db.Create(&track).Error; err != nil {
		return nil, fmt.Errorf("create demo track: %w", err)
	}

	comment := gofakeit.Sentence(8)
	post := models.Post{
		UserID:   user.ID,
		TrackID:  track.ID,
		PostDate: date,
		Comment:  &comment,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create demo post: %w", err)
	}
	if err := s.db.Model(&post).Association("Genres").Append(&genre); err != nil {
		return nil, fmt.Errorf("tag demo post: %w", err)
	}

	entry := models.PoolEntry{PostID: post.ID}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create pool entry: %w", err)
	}
	return &post, nil
}

func (s *Seeder) pickGenres(genres []models.Genre, n int) []models.Genre {
	idx := s.rng.Perm(len(genres))
	if n > len(genres) {
		n = len(genres)
	}
	picks := make([]models.Genre, 0, n)
	for _, i := range idx[:n] {
		picks = append(picks, genres[i])
	}
	return picks
}

func (s *Seeder) pickUsers(users []models.User, n int) []models.User {
	idx := s.rng.Perm(len(users))
	if n > len(users) {
		n = len(users)
	}
	picks := make([]models.User, 0, n)
	for _, i := range idx[:n] {
		picks = append(picks, users[i])
	}
	return picks
}

package service

import (
	"time"

	"onesong/internal/models"
)

// GenreView is the genre projection returned to clients.
type GenreView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TrackView is the track projection returned to clients.
type TrackView struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"`
	URL          string     `json:"url"`
	CoverArtURL  *string    `json:"cover_art_url,omitempty"`
	PrimaryGenre *GenreView `json:"primary_genre,omitempty"`
}

// PostView is the full post projection returned to clients.
type PostView struct {
	ID        uint        `json:"id"`
	UserID    uint        `json:"user"`
	Username  string      `json:"username"`
	Track     TrackView   `json:"track"`
	Genres    []GenreView `json:"genres"`
	Comment   *string     `json:"comment,omitempty"`
	CreatedAt string      `json:"created_at"`
}

// ReceivedPostResult is the outcome of the received-post resolver.
type ReceivedPostResult struct {
	HasReceived bool      `json:"has_received"`
	Message     string    `json:"message,omitempty"`
	Post        *PostView `json:"post,omitempty"`
}

// ReceivedHistoryItem is one page entry of a user's received history.
type ReceivedHistoryItem struct {
	ID           uint        `json:"id"`
	ReceivedAt   string      `json:"received_at"`
	FromUsername string      `json:"from_username"`
	Track        TrackView   `json:"track"`
	Genres       []GenreView `json:"genres"`
	Comment      *string     `json:"comment,omitempty"`
}

// SentHistoryItem is one page entry of a user's sent history.
type SentHistoryItem struct {
	ID       uint        `json:"id"`
	PostDate string      `json:"post_date"`
	Track    TrackView   `json:"track"`
	Genres   []GenreView `json:"genres"`
	Comment  *string     `json:"comment,omitempty"`
}

// Stats is the public activity snapshot.
type Stats struct {
	TodayExchange *models.TrackSummary `json:"today_exchange"`
	PopularTrack  *models.TrackSummary `json:"popular_track"`
	ActiveUsers   int64                `json:"active_users"`
}

func genreView(g models.Genre) GenreView {
	return GenreView{ID: g.ID, Name: g.Name, Slug: g.Slug}
}

func genreViews(genres []models.Genre) []GenreView {
	views := make([]GenreView, 0, len(genres))
	for _, g := range genres {
		views = append(views, genreView(g))
	}
	return views
}

func trackView(t models.Track) TrackView {
	view := TrackView{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		URL:         t.URL,
		CoverArtURL: t.CoverArtURL,
	}
	if t.PrimaryGenre != nil {
		pg := genreView(*t.PrimaryGenre)
		view.PrimaryGenre = &pg
	}
	return view
}

func postView(p *models.Post) *PostView {
	return &PostView{
		ID:        p.ID,
		UserID:    p.UserID,
		Username:  p.User.Username,
		Track:     trackView(p.Track),
		Genres:    genreViews(p.Genres),
		Comment:   p.Comment,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

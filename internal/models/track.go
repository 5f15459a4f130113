package models

import "time"

// Track is an immutable catalog item. Every post creates its own Track row,
// even when the metadata duplicates an earlier submission.
type Track struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Title          string  `gorm:"size:200;not null" json:"title"`
	Artist         string  `gorm:"size:200;not null" json:"artist"`
	URL            string  `gorm:"type:text;not null" json:"url"`
	MusicBrainzID  *string `gorm:"size:100" json:"musicbrainz_id,omitempty"`
	CoverArtURL    *string `gorm:"size:500" json:"cover_art_url,omitempty"`
	PrimaryGenreID *uint   `json:"primary_genre_id,omitempty"`
	PrimaryGenre   *Genre  `gorm:"foreignKey:PrimaryGenreID" json:"primary_genre,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// TrackSummary is the compact projection used by public stats.
type TrackSummary struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
}

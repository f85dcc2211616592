package entity

import (
	"time"
)

type Book struct {
	Base
	Title         string    `db:"title"`
	Author        string    `db:"author"`
	Description   *string   `db:"description"`
	Price         float64   `db:"price"`
	CoverURL      *string   `db:"cover_url"`
	Genre         string    `db:"genre"`
	Rating        float64   `db:"rating"`
	RatingCount   int       `db:"rating_count"`
	PublishedDate time.Time `db:"published_date"`
	FileKey       *string   `db:"file_key"`
	FileSize      *int64    `db:"file_size"`
	IsActive      bool      `db:"is_active"`
}

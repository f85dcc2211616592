package response

import (
	"bookvault/internal/data/entity"
)

type BookResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   *string  `json:"description"`
	Price         float64  `json:"price"`
	CoverURL      *string  `json:"cover_url"`
	Genre         string   `json:"genre"`
	Rating        float64  `json:"rating"`
	RatingCount   int      `json:"rating_count"`
	PublishedDate string   `json:"published_date"`
	PurchaseCount int64    `json:"purchase_count"`
	PurchaseInfo  *PurchaseInfo `json:"purchase_info,omitempty"`
}

// PurchaseInfo is attached when the book is listed from a user's library.
type PurchaseInfo struct {
	PurchaseID         string  `json:"purchase_id"`
	PurchaseDate       string  `json:"purchase_date"`
	PurchasePrice      float64 `json:"purchase_price"`
	DownloadCount      int     `json:"download_count"`
	MaxDownloads       int     `json:"max_downloads"`
	DownloadsRemaining int     `json:"downloads_remaining"`
	CanDownload        bool    `json:"can_download"`
}

func BookToResponse(book *entity.Book, purchaseCount int64) BookResponse {
	return BookResponse{
		ID:            book.ID.String(),
		Title:         book.Title,
		Author:        book.Author,
		Description:   book.Description,
		Price:         book.Price,
		CoverURL:      book.CoverURL,
		Genre:         book.Genre,
		Rating:        book.Rating,
		RatingCount:   book.RatingCount,
		PublishedDate: book.PublishedDate.Format("2006-01-02"),
		PurchaseCount: purchaseCount,
	}
}

type GenresResponse struct {
	Genres []string `json:"genres"`
}

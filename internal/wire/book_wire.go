package wire

import (
	"bookvault/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireBook configures the public catalog routes. Registered flat because
// the purchase routes also live under /api/books.
func wireBook(r chi.Router, bookHandler *adaptor.BookHandler) {
	r.Get("/api/books", bookHandler.ListBooks)
	r.Get("/api/books/search", bookHandler.SearchBooks)
	r.Get("/api/books/genres", bookHandler.GetGenres)
	r.Get("/api/books/{id}", bookHandler.GetBook)
}

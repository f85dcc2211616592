package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"bookvault/internal/dto/request"
	"bookvault/internal/usecase"
	"bookvault/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookHandler struct {
	service usecase.CatalogService
	log     *zap.Logger
}

func NewBookHandler(service usecase.CatalogService, log *zap.Logger) *BookHandler {
	return &BookHandler{
		service: service,
		log:     log.With(zap.String("handler", "book")),
	}
}

// ListBooks handles GET /api/books (public)
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &request.BookListRequest{
		Search:    query.Get("search"),
		Author:    query.Get("author"),
		Genre:     query.Get("genre"),
		MinPrice:  utils.ParseFloat(query.Get("min_price")),
		MaxPrice:  utils.ParseFloat(query.Get("max_price")),
		MinRating: utils.ParseFloat(query.Get("min_rating")),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), 20)

	books, err := h.service.ListBooks(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "list books")
		return
	}

	utils.ResponseSuccess(w, "success", books)
}

// SearchBooks handles GET /api/books/search (public)
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &request.BookListRequest{
		Search:    query.Get("q"),
		Author:    query.Get("author"),
		Genre:     query.Get("genre"),
		MinPrice:  utils.ParseFloat(query.Get("min_price")),
		MaxPrice:  utils.ParseFloat(query.Get("max_price")),
		MinRating: utils.ParseFloat(query.Get("min_rating")),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), 20)

	books, err := h.service.ListBooks(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "search books")
		return
	}

	utils.ResponseSuccess(w, "success", books)
}

// GetBook handles GET /api/books/{id} (public)
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid book ID", nil)
		return
	}

	book, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		h.handleServiceError(w, err, "get book")
		return
	}

	utils.ResponseSuccess(w, "success", book)
}

// GetGenres handles GET /api/books/genres (public)
func (h *BookHandler) GetGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.GetGenres(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "get genres")
		return
	}

	utils.ResponseSuccess(w, "success", genres)
}

// handleServiceError maps catalog errors to HTTP responses
func (h *BookHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrBookNotFound):
		h.log.Warn(operation+" failed - book not found", zap.Error(err))
		utils.ResponseNotFound(w, "Book not found")

	case errors.Is(err, usecase.ErrBookUnavailable):
		h.log.Warn(operation+" failed - book unavailable", zap.Error(err))
		utils.ResponseNotFound(w, "Book is no longer available")

	case strings.Contains(err.Error(), "validation failed"):
		h.log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

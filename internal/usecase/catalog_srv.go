package usecase

import (
	"context"
	"fmt"

	"bookvault/internal/data/repository"
	"bookvault/internal/dto/request"
	"bookvault/internal/dto/response"
	"bookvault/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListBooks(ctx context.Context, req *request.BookListRequest) (*response.PaginatedResponse[response.BookResponse], error)
	GetBook(ctx context.Context, bookID uuid.UUID) (*response.BookResponse, error)
	GetGenres(ctx context.Context) (*response.GenresResponse, error)
}

type catalogService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewCatalogService(repo *repository.Repository, log *zap.Logger) CatalogService {
	return &catalogService{
		repo: repo,
		log:  log.With(zap.String("service", "catalog")),
	}
}

func (s *catalogService) ListBooks(ctx context.Context, req *request.BookListRequest) (*response.PaginatedResponse[response.BookResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("List books validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	filter := repository.BookFilter{
		Query:     req.Search,
		Author:    req.Author,
		Genre:     req.Genre,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		MinRating: req.MinRating,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	books, err := s.repo.Book.Search(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to search books", zap.Error(err))
		return nil, fmt.Errorf("search books: %w", err)
	}

	total, err := s.repo.Book.Count(ctx, filter)
	if err != nil {
		s.log.Error("Failed to count books", zap.Error(err))
		return nil, fmt.Errorf("count books: %w", err)
	}

	items := make([]response.BookResponse, len(books))
	for i, book := range books {
		items[i] = response.BookToResponse(book, 0)
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

func (s *catalogService) GetBook(ctx context.Context, bookID uuid.UUID) (*response.BookResponse, error) {
	book, err := s.repo.Book.FindByID(ctx, bookID)
	if err != nil {
		s.log.Error("Failed to find book", zap.Error(err), zap.String("book_id", bookID.String()))
		return nil, fmt.Errorf("find book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	if !book.IsActive {
		return nil, ErrBookUnavailable
	}

	purchaseCount, err := s.repo.Book.CountCompletedPurchases(ctx, bookID)
	if err != nil {
		s.log.Error("Failed to count purchases", zap.Error(err), zap.String("book_id", bookID.String()))
		return nil, fmt.Errorf("count purchases: %w", err)
	}

	resp := response.BookToResponse(book, purchaseCount)
	return &resp, nil
}

func (s *catalogService) GetGenres(ctx context.Context) (*response.GenresResponse, error) {
	genres, err := s.repo.Book.FindGenres(ctx)
	if err != nil {
		s.log.Error("Failed to list genres", zap.Error(err))
		return nil, fmt.Errorf("list genres: %w", err)
	}

	return &response.GenresResponse{Genres: genres}, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"bookvault/internal/data/entity"
	"bookvault/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookFilter narrows catalog queries. Nil/empty fields are ignored.
type BookFilter struct {
	Query     string
	Author    string
	Genre     string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	SortBy    string
	SortOrder string
}

type BookRepository interface {
	// FindByID returns the book regardless of availability so callers can
	// tell "not found" from "unavailable". Search and Count only see active rows.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	Search(ctx context.Context, filter BookFilter, limit, offset int) ([]*entity.Book, error)
	Count(ctx context.Context, filter BookFilter) (int64, error)
	FindGenres(ctx context.Context) ([]string, error)
	CountCompletedPurchases(ctx context.Context, bookID uuid.UUID) (int64, error)
}

type bookRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookRepository(db database.PgxIface, log *zap.Logger) BookRepository {
	return &bookRepository{
		db:  db,
		log: log.With(zap.String("repository", "book")),
	}
}

const bookColumns = `id, title, author, description, price, cover_url, genre,
	rating, rating_count, published_date, file_key, file_size, is_active,
	created_at, updated_at, deleted_at`

func (r *bookRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE id = $1 AND deleted_at IS NULL
	`, bookColumns)

	var book entity.Book
	err := r.db.QueryRow(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.Price,
		&book.CoverURL,
		&book.Genre,
		&book.Rating,
		&book.RatingCount,
		&book.PublishedDate,
		&book.FileKey,
		&book.FileSize,
		&book.IsActive,
		&book.CreatedAt,
		&book.UpdatedAt,
		&book.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find book by ID",
			zap.Error(err),
			zap.String("book_id", id.String()),
		)
		return nil, fmt.Errorf("find book by ID %s: %w", id.String(), err)
	}

	return &book, nil
}

// buildFilter assembles the WHERE clause and positional args shared by
// Search and Count. Sort columns are whitelisted, never interpolated from input.
func buildFilter(filter BookFilter) (string, []any) {
	conditions := []string{"is_active = TRUE", "deleted_at IS NULL"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		p := arg(pattern)
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE %s OR author ILIKE %s OR description ILIKE %s)", p, p, p))
	}
	if filter.Author != "" {
		conditions = append(conditions, fmt.Sprintf("author ILIKE %s", arg("%"+filter.Author+"%")))
	}
	if filter.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("genre = %s", arg(filter.Genre)))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= %s", arg(*filter.MinPrice)))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= %s", arg(*filter.MaxPrice)))
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= %s", arg(*filter.MinRating)))
	}

	return strings.Join(conditions, " AND "), args
}

func orderClause(sortBy, sortOrder string) string {
	column := "title"
	switch sortBy {
	case "title", "author", "price", "rating":
		column = sortBy
	case "published_date":
		column = "published_date"
	}

	direction := "ASC"
	if sortOrder == "desc" {
		direction = "DESC"
	}

	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

func (r *bookRepository) Search(ctx context.Context, filter BookFilter, limit, offset int) ([]*entity.Book, error) {
	where, args := buildFilter(filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE %s
		%s
		LIMIT $%d OFFSET $%d
	`, bookColumns, where, orderClause(filter.SortBy, filter.SortOrder), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to search books",
			zap.Error(err),
			zap.String("query", filter.Query),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("search books limit %d offset %d: %w", limit, offset, err)
	}
	defer rows.Close()

	var books []*entity.Book
	for rows.Next() {
		var book entity.Book
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Description,
			&book.Price,
			&book.CoverURL,
			&book.Genre,
			&book.Rating,
			&book.RatingCount,
			&book.PublishedDate,
			&book.FileKey,
			&book.FileSize,
			&book.IsActive,
			&book.CreatedAt,
			&book.UpdatedAt,
			&book.DeletedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan book row", zap.Error(err))
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, &book)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate books rows: %w", err)
	}

	return books, nil
}

func (r *bookRepository) Count(ctx context.Context, filter BookFilter) (int64, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM books WHERE %s`, where)

	var count int64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return 0, fmt.Errorf("count books: %w", err)
	}

	return count, nil
}

func (r *bookRepository) FindGenres(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT genre
		FROM books
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY genre
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find genres", zap.Error(err))
		return nil, fmt.Errorf("find genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			r.log.Error("Failed to scan genre row", zap.Error(err))
			return nil, fmt.Errorf("scan genre row: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genre rows: %w", err)
	}

	return genres, nil
}

func (r *bookRepository) CountCompletedPurchases(ctx context.Context, bookID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM purchases WHERE book_id = $1 AND status = 'completed'`

	var count int64
	err := r.db.QueryRow(ctx, query, bookID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count book purchases",
			zap.Error(err),
			zap.String("book_id", bookID.String()),
		)
		return 0, fmt.Errorf("count purchases for book %s: %w", bookID.String(), err)
	}

	return count, nil
}

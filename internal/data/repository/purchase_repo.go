package repository

import (
	"context"
	"errors"
	"fmt"

	"bookvault/internal/data/entity"
	"bookvault/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type PurchaseRepository interface {
	// Create inserts the purchase row. A completed row for the same
	// (user, book) pair trips the partial unique index and returns
	// ErrDuplicatePurchase, so concurrent attempts commit at most one.
	Create(ctx context.Context, purchase *entity.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Purchase, error)
	FindCompletedByUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (*entity.Purchase, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Purchase, error)
	FindCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Purchase, error)
	UpdateStatus(ctx context.Context, purchaseID uuid.UUID, status entity.PurchaseStatus) error
	// IncrementDownload bumps download_count, guarded in SQL so the
	// per-purchase limit cannot be exceeded by concurrent downloads.
	// Returns false when the row is not completed or the limit is reached.
	IncrementDownload(ctx context.Context, purchaseID uuid.UUID) (bool, error)
}

type purchaseRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPurchaseRepository(db database.PgxIface, log *zap.Logger) PurchaseRepository {
	return &purchaseRepository{
		db:  db,
		log: log.With(zap.String("repository", "purchase")),
	}
}

const purchaseColumns = `id, user_id, book_id, purchase_price, payment_method,
	status, transaction_id, download_count, max_downloads, created_at, updated_at`

func (r *purchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	query := `
		INSERT INTO purchases (id, user_id, book_id, purchase_price, payment_method,
		                       status, transaction_id, download_count, max_downloads,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		purchase.ID,
		purchase.UserID,
		purchase.BookID,
		purchase.PurchasePrice,
		purchase.PaymentMethod,
		purchase.Status,
		purchase.TransactionID,
		purchase.DownloadCount,
		purchase.MaxDownloads,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePurchase
		}

		r.log.Error("Failed to create purchase",
			zap.Error(err),
			zap.String("user_id", purchase.UserID.String()),
			zap.String("book_id", purchase.BookID.String()),
		)
		return fmt.Errorf("create purchase for user %s book %s: %w",
			purchase.UserID.String(), purchase.BookID.String(), err)
	}

	return nil
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE id = $1`, purchaseColumns)

	var purchase entity.Purchase
	err := r.db.QueryRow(ctx, query, id).Scan(
		&purchase.ID,
		&purchase.UserID,
		&purchase.BookID,
		&purchase.PurchasePrice,
		&purchase.PaymentMethod,
		&purchase.Status,
		&purchase.TransactionID,
		&purchase.DownloadCount,
		&purchase.MaxDownloads,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find purchase by ID",
			zap.Error(err),
			zap.String("purchase_id", id.String()),
		)
		return nil, fmt.Errorf("find purchase by ID %s: %w", id.String(), err)
	}

	return &purchase, nil
}

func (r *purchaseRepository) FindCompletedByUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (*entity.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE user_id = $1 AND book_id = $2 AND status = 'completed'
	`, purchaseColumns)

	var purchase entity.Purchase
	err := r.db.QueryRow(ctx, query, userID, bookID).Scan(
		&purchase.ID,
		&purchase.UserID,
		&purchase.BookID,
		&purchase.PurchasePrice,
		&purchase.PaymentMethod,
		&purchase.Status,
		&purchase.TransactionID,
		&purchase.DownloadCount,
		&purchase.MaxDownloads,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find completed purchase",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("book_id", bookID.String()),
		)
		return nil, fmt.Errorf("find completed purchase for user %s book %s: %w",
			userID.String(), bookID.String(), err)
	}

	return &purchase, nil
}

func (r *purchaseRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, purchaseColumns)

	return r.queryMany(ctx, query, userID)
}

func (r *purchaseRepository) FindCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE user_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
	`, purchaseColumns)

	return r.queryMany(ctx, query, userID)
}

func (r *purchaseRepository) queryMany(ctx context.Context, query string, args ...any) ([]*entity.Purchase, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query purchases", zap.Error(err))
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*entity.Purchase
	for rows.Next() {
		var purchase entity.Purchase
		err := rows.Scan(
			&purchase.ID,
			&purchase.UserID,
			&purchase.BookID,
			&purchase.PurchasePrice,
			&purchase.PaymentMethod,
			&purchase.Status,
			&purchase.TransactionID,
			&purchase.DownloadCount,
			&purchase.MaxDownloads,
			&purchase.CreatedAt,
			&purchase.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan purchase row", zap.Error(err))
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		purchases = append(purchases, &purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}

	return purchases, nil
}

func (r *purchaseRepository) UpdateStatus(ctx context.Context, purchaseID uuid.UUID, status entity.PurchaseStatus) error {
	query := `UPDATE purchases SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, purchaseID, status)
	if err != nil {
		r.log.Error("Failed to update purchase status",
			zap.Error(err),
			zap.String("purchase_id", purchaseID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update purchase %s status to %s: %w", purchaseID.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("purchase %s not found", purchaseID.String())
	}

	return nil
}

func (r *purchaseRepository) IncrementDownload(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	query := `
		UPDATE purchases
		SET download_count = download_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND download_count < max_downloads
	`

	result, err := r.db.Exec(ctx, query, purchaseID)
	if err != nil {
		r.log.Error("Failed to increment download count",
			zap.Error(err),
			zap.String("purchase_id", purchaseID.String()),
		)
		return false, fmt.Errorf("increment download for purchase %s: %w", purchaseID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

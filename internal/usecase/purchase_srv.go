package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookvault/internal/data/entity"
	"bookvault/internal/data/repository"
	"bookvault/internal/dto/request"
	"bookvault/internal/dto/response"
	"bookvault/pkg/cache"
	"bookvault/pkg/storage"
	"bookvault/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PurchaseService interface {
	// Purchase records a completed purchase. At most one completed purchase
	// per (user, book) can exist, concurrent attempts included.
	Purchase(ctx context.Context, userID uuid.UUID, req *request.PurchaseRequest) (*response.PurchaseResponse, error)

	// AuthorizeDownload evaluates the download gate without side effects.
	AuthorizeDownload(ctx context.Context, userID, bookID uuid.UUID) (*response.DownloadAuthorizationResponse, error)

	// Download consumes one download slot and returns a time-limited URL.
	Download(ctx context.Context, userID, bookID uuid.UUID) (*response.DownloadResponse, error)

	// Refund flips a completed purchase to refunded and revokes the entitlement.
	Refund(ctx context.Context, userID, purchaseID uuid.UUID) (*response.PurchaseResponse, error)
}

type purchaseService struct {
	repo         *repository.Repository
	entitlements cache.EntitlementCache
	store        storage.ObjectStore
	config       *utils.Config
	log          *zap.Logger
}

func NewPurchaseService(repo *repository.Repository, entitlements cache.EntitlementCache, store storage.ObjectStore, config *utils.Config, log *zap.Logger) PurchaseService {
	return &purchaseService{
		repo:         repo,
		entitlements: entitlements,
		store:        store,
		config:       config,
		log:          log.With(zap.String("service", "purchase")),
	}
}

func (s *purchaseService) Purchase(ctx context.Context, userID uuid.UUID, req *request.PurchaseRequest) (*response.PurchaseResponse, error) {
	// 1. Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Purchase validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// Safe after the uuid validation tag
	bookID, _ := uuid.Parse(req.BookID)

	// 2. The book must exist and be purchasable
	book, err := s.repo.Book.FindByID(ctx, bookID)
	if err != nil {
		s.log.Error("Failed to find book", zap.Error(err), zap.String("book_id", req.BookID))
		return nil, fmt.Errorf("find book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	if !book.IsActive {
		return nil, ErrBookUnavailable
	}

	// 3. Fast ownership pre-check, cache first with DB fallback. Only
	//    advisory: the unique index below is what actually holds under
	//    concurrency.
	if owned, found, err := s.entitlements.IsOwned(ctx, userID, bookID); err == nil && found {
		if owned {
			return nil, ErrAlreadyOwned
		}
	} else {
		existing, err := s.repo.Purchase.FindCompletedByUserAndBook(ctx, userID, bookID)
		if err != nil {
			return nil, fmt.Errorf("check ownership: %w", err)
		}
		if existing != nil {
			return nil, ErrAlreadyOwned
		}
	}

	// 4. Record the purchase at the catalog price as of now
	txnID := utils.GenerateTransactionID()
	purchase := &entity.Purchase{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		UserID:        userID,
		BookID:        bookID,
		PurchasePrice: book.Price,
		PaymentMethod: req.PaymentMethod,
		Status:        entity.PurchaseStatusCompleted,
		TransactionID: &txnID,
		DownloadCount: 0,
		MaxDownloads:  s.config.Download.MaxPerPurchase,
	}

	if err := s.repo.Purchase.Create(ctx, purchase); err != nil {
		if errors.Is(err, repository.ErrDuplicatePurchase) {
			return nil, ErrAlreadyOwned
		}
		s.log.Error("Failed to create purchase",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("book_id", req.BookID))
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	// 5. Best effort: grant the derived entitlement. Authorization reads
	//    the database, so a cache miss here only costs a later lookup.
	if err := s.entitlements.Grant(ctx, userID, bookID); err != nil {
		s.log.Warn("Failed to grant entitlement",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("book_id", req.BookID))
	}

	s.log.Info("Purchase completed",
		zap.String("user_id", userID.String()),
		zap.String("book_id", req.BookID),
		zap.String("transaction_id", txnID),
		zap.Float64("price", book.Price))

	resp := response.PurchaseToResponse(purchase)
	return &resp, nil
}

func (s *purchaseService) AuthorizeDownload(ctx context.Context, userID, bookID uuid.UUID) (*response.DownloadAuthorizationResponse, error) {
	purchase, user, err := s.downloadGate(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	switch {
	case purchase == nil:
		return &response.DownloadAuthorizationResponse{Permitted: false, Reason: response.DenyReasonNotPurchased}, nil
	case !user.HasRegisteredDevice():
		return &response.DownloadAuthorizationResponse{Permitted: false, Reason: response.DenyReasonNoDevice}, nil
	case !purchase.CanDownload():
		return &response.DownloadAuthorizationResponse{Permitted: false, Reason: response.DenyReasonLimitExceeded}, nil
	default:
		return &response.DownloadAuthorizationResponse{Permitted: true, Reason: response.DenyReasonNone}, nil
	}
}

func (s *purchaseService) Download(ctx context.Context, userID, bookID uuid.UUID) (*response.DownloadResponse, error) {
	purchase, user, err := s.downloadGate(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if purchase == nil {
		return nil, ErrNotPurchased
	}
	if !user.HasRegisteredDevice() {
		return nil, ErrNoDeviceRegistered
	}

	book, err := s.repo.Book.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	if book == nil || book.FileKey == nil {
		return nil, ErrBookNotFound
	}

	// The increment is guarded in SQL, so two concurrent downloads on the
	// last slot cannot both succeed.
	ok, err := s.repo.Purchase.IncrementDownload(ctx, purchase.ID)
	if err != nil {
		s.log.Error("Failed to increment download count",
			zap.Error(err), zap.String("purchase_id", purchase.ID.String()))
		return nil, fmt.Errorf("increment download: %w", err)
	}
	if !ok {
		return nil, ErrDownloadLimitReached
	}

	expiry := time.Duration(s.config.Download.URLExpirySeconds) * time.Second
	url, err := s.store.PresignDownload(ctx, *book.FileKey, expiry)
	if err != nil {
		s.log.Error("Failed to presign download",
			zap.Error(err), zap.String("book_id", bookID.String()))
		return nil, fmt.Errorf("presign download: %w", err)
	}

	s.log.Info("Download issued",
		zap.String("user_id", userID.String()),
		zap.String("book_id", bookID.String()),
		zap.Int("download_count", purchase.DownloadCount+1))

	return &response.DownloadResponse{
		DownloadURL:        url,
		ExpiresIn:          s.config.Download.URLExpirySeconds,
		DownloadsRemaining: purchase.MaxDownloads - purchase.DownloadCount - 1,
	}, nil
}

func (s *purchaseService) Refund(ctx context.Context, userID, purchaseID uuid.UUID) (*response.PurchaseResponse, error) {
	purchase, err := s.repo.Purchase.FindByID(ctx, purchaseID)
	if err != nil {
		s.log.Error("Failed to find purchase",
			zap.Error(err), zap.String("purchase_id", purchaseID.String()))
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	if purchase.UserID != userID {
		return nil, ErrNotPurchaseOwner
	}
	if purchase.Status != entity.PurchaseStatusCompleted {
		return nil, ErrNotRefundable
	}

	// The row is kept as the audit trail; only the status flips.
	if err := s.repo.Purchase.UpdateStatus(ctx, purchaseID, entity.PurchaseStatusRefunded); err != nil {
		s.log.Error("Failed to refund purchase",
			zap.Error(err), zap.String("purchase_id", purchaseID.String()))
		return nil, fmt.Errorf("refund purchase: %w", err)
	}

	if err := s.entitlements.Revoke(ctx, userID, purchase.BookID); err != nil {
		s.log.Warn("Failed to revoke entitlement",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("book_id", purchase.BookID.String()))
	}

	s.log.Info("Purchase refunded",
		zap.String("user_id", userID.String()),
		zap.String("purchase_id", purchaseID.String()))

	purchase.Status = entity.PurchaseStatusRefunded
	purchase.UpdatedAt = time.Now()
	resp := response.PurchaseToResponse(purchase)
	return &resp, nil
}

// downloadGate loads the state the download checks depend on. A nil purchase
// means no completed purchase exists for the pair.
func (s *purchaseService) downloadGate(ctx context.Context, userID, bookID uuid.UUID) (*entity.Purchase, *entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrUserNotFound
	}

	purchase, err := s.repo.Purchase.FindCompletedByUserAndBook(ctx, userID, bookID)
	if err != nil {
		s.log.Error("Failed to find purchase",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("book_id", bookID.String()))
		return nil, nil, fmt.Errorf("find purchase: %w", err)
	}

	return purchase, user, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"bookvault/internal/data/entity"
	"bookvault/internal/data/repository"
	"bookvault/internal/dto/request"
	"bookvault/internal/dto/response"
	"bookvault/pkg/cache"
	"bookvault/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error

	// Device slot management. One slot per account, registering overwrites.
	RegisterDevice(ctx context.Context, userID uuid.UUID, req *request.RegisterDeviceRequest) (*response.DeviceResponse, error)
	UnregisterDevice(ctx context.Context, userID uuid.UUID) error

	GetPurchasedBooks(ctx context.Context, userID uuid.UUID) ([]response.BookResponse, error)
	GetPurchaseHistory(ctx context.Context, userID uuid.UUID) ([]response.PurchaseResponse, error)
}

type userService struct {
	repo         *repository.Repository
	entitlements cache.EntitlementCache
	log          *zap.Logger
}

func NewUserService(repo *repository.Repository, entitlements cache.EntitlementCache, log *zap.Logger) UserService {
	return &userService{
		repo:         repo,
		entitlements: entitlements,
		log:          log.With(zap.String("service", "user")),
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.findActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	purchases, err := s.repo.Purchase.FindCompletedByUserID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load purchased books for profile",
			zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("load purchases: %w", err)
	}

	bookIDs := make([]string, len(purchases))
	for i, p := range purchases {
		bookIDs[i] = p.BookID.String()
	}

	resp := response.UserToResponse(user, bookIDs)
	return &resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update profile validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.findActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Email change must not collide with another account
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			existing, err := s.repo.User.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if existing != nil {
				return nil, ErrEmailTaken
			}
			user.Email = email
		}
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.log.Error("Failed to update profile",
			zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info("Profile updated", zap.String("user_id", userID.String()))

	resp := response.UserToResponse(user, nil)
	return &resp, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Change password validation failed", zap.Any("errors", errs))
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.findActiveUser(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return ErrPasswordIncorrect
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash new password", zap.Error(err))
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.User.UpdatePassword(ctx, userID, hashed); err != nil {
		s.log.Error("Failed to change password",
			zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.findActiveUser(ctx, userID); err != nil {
		return err
	}

	// Soft delete. Purchase rows stay for the audit trail.
	if err := s.repo.User.Deactivate(ctx, userID); err != nil {
		s.log.Error("Failed to delete account",
			zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("delete account: %w", err)
	}

	// Best effort: outstanding sessions die with the account
	if err := s.repo.RefreshToken.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Warn("Failed to revoke tokens for deleted account",
			zap.Error(err), zap.String("user_id", userID.String()))
	}

	s.log.Info("Account deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) RegisterDevice(ctx context.Context, userID uuid.UUID, req *request.RegisterDeviceRequest) (*response.DeviceResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register device validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.findActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The slot holds one value; registering replaces whatever was there.
	// Concurrent registrations race with last-writer-wins semantics.
	if user.HasRegisteredDevice() {
		s.log.Info("Replacing registered device",
			zap.String("user_id", userID.String()),
			zap.Stringp("previous_device", user.RegisteredDeviceName),
			zap.String("new_device", req.DeviceName))
	}

	if err := s.repo.User.UpdateDevice(ctx, userID, &req.DeviceID, &req.DeviceName); err != nil {
		s.log.Error("Failed to register device",
			zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("register device: %w", err)
	}

	s.log.Info("Device registered",
		zap.String("user_id", userID.String()),
		zap.String("device_name", req.DeviceName))

	return &response.DeviceResponse{
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
	}, nil
}

func (s *userService) UnregisterDevice(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findActiveUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.HasRegisteredDevice() {
		return ErrNoDeviceRegistered
	}

	if err := s.repo.User.UpdateDevice(ctx, userID, nil, nil); err != nil {
		s.log.Error("Failed to unregister device",
			zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("unregister device: %w", err)
	}

	s.log.Info("Device unregistered", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) GetPurchasedBooks(ctx context.Context, userID uuid.UUID) ([]response.BookResponse, error) {
	if _, err := s.findActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	purchases, err := s.repo.Purchase.FindCompletedByUserID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load purchases",
			zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("load purchases: %w", err)
	}

	books := make([]response.BookResponse, 0, len(purchases))
	bookIDs := make([]uuid.UUID, 0, len(purchases))
	for _, purchase := range purchases {
		book, err := s.repo.Book.FindByID(ctx, purchase.BookID)
		if err != nil {
			return nil, fmt.Errorf("load book %s: %w", purchase.BookID.String(), err)
		}
		if book == nil || !book.IsActive {
			continue
		}

		bookResp := response.BookToResponse(book, 0)
		bookResp.PurchaseInfo = &response.PurchaseInfo{
			PurchaseID:         purchase.ID.String(),
			PurchaseDate:       purchase.CreatedAt.Format(time.RFC3339),
			PurchasePrice:      purchase.PurchasePrice,
			DownloadCount:      purchase.DownloadCount,
			MaxDownloads:       purchase.MaxDownloads,
			DownloadsRemaining: purchase.DownloadsRemaining(),
			CanDownload:        purchase.CanDownload(),
		}
		books = append(books, bookResp)
		bookIDs = append(bookIDs, purchase.BookID)
	}

	// Refresh the derived set while we hold the authoritative answer
	if err := s.entitlements.Warm(ctx, userID, bookIDs); err != nil {
		s.log.Warn("Failed to warm entitlement cache",
			zap.Error(err), zap.String("user_id", userID.String()))
	}

	return books, nil
}

func (s *userService) GetPurchaseHistory(ctx context.Context, userID uuid.UUID) ([]response.PurchaseResponse, error) {
	if _, err := s.findActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	purchases, err := s.repo.Purchase.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load purchase history",
			zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("load purchase history: %w", err)
	}

	result := make([]response.PurchaseResponse, 0, len(purchases))
	for _, purchase := range purchases {
		resp := response.PurchaseToResponse(purchase)

		book, err := s.repo.Book.FindByID(ctx, purchase.BookID)
		if err != nil {
			return nil, fmt.Errorf("load book %s: %w", purchase.BookID.String(), err)
		}
		if book != nil {
			resp.Book = &response.BookSummary{
				ID:       book.ID.String(),
				Title:    book.Title,
				Author:   book.Author,
				CoverURL: book.CoverURL,
			}
		}

		result = append(result, resp)
	}

	return result, nil
}

func (s *userService) findActiveUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}

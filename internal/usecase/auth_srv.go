package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookvault/internal/data/entity"
	"bookvault/internal/data/repository"
	"bookvault/internal/dto/request"
	"bookvault/internal/dto/response"
	"bookvault/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Signup(ctx context.Context, req *request.SignupRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Refresh(ctx context.Context, req *request.RefreshRequest) (*response.RefreshResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
}

type authService struct {
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Signup(ctx context.Context, req *request.SignupRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Signup validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	email := normalizeEmail(req.Email)

	// 2. Check email is free
	existingUser, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to check email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// 3. Hash password
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. Create user entity
	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
	}

	// 5. Save user
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.log.Error("Failed to create user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 6. Auto login after signup
	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		s.log.Warn("Failed to issue tokens after signup",
			zap.Error(err), zap.String("user_id", user.ID.String()))
		// Continue without tokens, account exists
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return &response.AuthResponse{
		User:   response.UserToResponse(user, nil),
		Tokens: tokens,
	}, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	email := normalizeEmail(req.Email)

	// 2. Find user by email
	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("find user: %w", err)
	}

	// 3. Check credentials. Same error for unknown email and wrong
	// password, so login does not leak which accounts exist.
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid credentials", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	// 4. Check if user is active
	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	// 5. Issue tokens
	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		s.log.Error("Failed to issue tokens", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return &response.AuthResponse{
		User:   response.UserToResponse(user, nil),
		Tokens: tokens,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, req *request.RefreshRequest) (*response.RefreshResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	tokenHash := utils.HashToken(req.RefreshToken)

	token, err := s.repo.RefreshToken.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		s.log.Error("Failed to look up refresh token", zap.Error(err))
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if token == nil {
		return nil, ErrInvalidRefresh
	}

	// Reuse of a revoked token means the raw token leaked; kill the
	// whole family for that user.
	if token.IsRevoked() {
		s.log.Warn("Revoked refresh token reused", zap.String("user_id", token.UserID.String()))
		if err := s.repo.RefreshToken.RevokeAllForUser(ctx, token.UserID); err != nil {
			s.log.Error("Failed to revoke token family", zap.Error(err))
		}
		return nil, ErrInvalidRefresh
	}

	if token.IsExpired() {
		return nil, ErrInvalidRefresh
	}

	user, err := s.repo.User.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidRefresh
	}

	// Rotate: revoke old, issue new pair
	if err := s.repo.RefreshToken.Revoke(ctx, token.ID); err != nil {
		s.log.Error("Failed to revoke rotated token", zap.Error(err))
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.log.Info("Tokens refreshed", zap.String("user_id", user.ID.String()))

	return &response.RefreshResponse{Tokens: *tokens}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := utils.HashToken(refreshToken)

	token, err := s.repo.RefreshToken.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		s.log.Error("Failed to look up refresh token for logout", zap.Error(err))
		return fmt.Errorf("find refresh token: %w", err)
	}
	if token == nil {
		// Already gone, logout is idempotent
		return nil
	}

	if err := s.repo.RefreshToken.Revoke(ctx, token.ID); err != nil {
		s.log.Error("Failed to revoke refresh token", zap.Error(err))
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.log.Info("User logged out", zap.String("user_id", token.UserID.String()))
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user for password reset", zap.Error(err))
		return fmt.Errorf("find user: %w", err)
	}

	// Always succeed so the endpoint never reveals whether the email exists.
	if user != nil {
		// TODO: send the actual reset email once SMTP credentials land
		s.log.Info("Password reset requested", zap.String("user_id", user.ID.String()))
	}

	return nil
}

// issueTokenPair signs a short-lived access token and persists the
// hashed refresh token.
func (s *authService) issueTokenPair(ctx context.Context, user *entity.User) (*response.TokenPair, error) {
	accessExpiry := time.Duration(s.config.JWT.AccessExpiryMin) * time.Minute

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(accessExpiry).Unix(),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshRaw := uuid.New().String()
	refreshToken := &entity.RefreshToken{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		UserID:    user.ID,
		TokenHash: utils.HashToken(refreshRaw),
		ExpiresAt: time.Now().Add(time.Duration(s.config.JWT.RefreshExpiryHours) * time.Hour),
	}

	if err := s.repo.RefreshToken.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &response.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresIn:    int(accessExpiry.Seconds()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

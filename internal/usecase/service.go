package usecase

import (
	"bookvault/internal/data/repository"
	"bookvault/pkg/cache"
	"bookvault/pkg/storage"
	"bookvault/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth     AuthService
	User     UserService
	Catalog  CatalogService
	Purchase PurchaseService
}

func NewService(
	repo *repository.Repository,
	entitlements cache.EntitlementCache,
	store storage.ObjectStore,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:     NewAuthService(repo, config, log),
		User:     NewUserService(repo, entitlements, log),
		Catalog:  NewCatalogService(repo, log),
		Purchase: NewPurchaseService(repo, entitlements, store, config, log),
	}
}

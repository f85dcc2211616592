package repository

import (
	"bookvault/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User         UserRepository
	Book         BookRepository
	Purchase     PurchaseRepository
	RefreshToken RefreshTokenRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(db, log),
		Book:         NewBookRepository(db, log),
		Purchase:     NewPurchaseRepository(db, log),
		RefreshToken: NewRefreshTokenRepository(db, log),
	}
}

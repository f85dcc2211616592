package adaptor

import (
	"bookvault/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Book     *BookHandler
	Purchase *PurchaseHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(service.Auth, log),
		User:     NewUserHandler(service.User, log),
		Book:     NewBookHandler(service.Catalog, log),
		Purchase: NewPurchaseHandler(service.Purchase, log),
	}
}

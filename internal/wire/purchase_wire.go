package wire

import (
	"bookvault/internal/adaptor"
	"bookvault/pkg/middleware"
	"bookvault/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wirePurchase configures purchase and download routes, all behind authentication
func wirePurchase(
	r chi.Router,
	purchaseHandler *adaptor.PurchaseHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	auth := middleware.Auth(config.JWT.Secret, log)

	r.With(auth).Post("/api/books/purchase", purchaseHandler.Purchase)
	r.With(auth).Get("/api/books/{id}/download-authorization", purchaseHandler.AuthorizeDownload)
	r.With(auth).Get("/api/books/{id}/download", purchaseHandler.Download)
	r.With(auth).Post("/api/purchases/{id}/refund", purchaseHandler.Refund)
}

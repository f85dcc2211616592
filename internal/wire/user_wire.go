package wire

import (
	"bookvault/internal/adaptor"
	"bookvault/pkg/middleware"
	"bookvault/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireUser configures account and device routes, all behind authentication
func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.With(middleware.Auth(config.JWT.Secret, log)).Route("/api/users", func(r chi.Router) {
		r.Get("/profile", userHandler.GetProfile)
		r.Put("/profile", userHandler.UpdateProfile)
		r.Put("/change-password", userHandler.ChangePassword)
		r.Delete("/account", userHandler.DeleteAccount)

		// Single device slot per account
		r.Post("/register-device", userHandler.RegisterDevice)
		r.Delete("/register-device", userHandler.UnregisterDevice)

		r.Get("/purchased-books", userHandler.GetPurchasedBooks)
		r.Get("/purchases", userHandler.GetPurchaseHistory)
	})
}

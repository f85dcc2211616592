package wire

import (
	"net/http"

	"bookvault/internal/adaptor"
	"bookvault/internal/data/repository"
	"bookvault/internal/usecase"
	"bookvault/pkg/cache"
	"bookvault/pkg/middleware"
	"bookvault/pkg/storage"
	"bookvault/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring initializes services, handlers and routes
func Wiring(
	repo *repository.Repository,
	entitlements cache.EntitlementCache,
	store storage.ObjectStore,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, entitlements, store, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router: router,
	}
}

// setupRouter configures the Chi router
func setupRouter(
	handler *adaptor.Handler,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireAuth(r, handler.Auth)
	wireUser(r, handler.User, config, logger)
	wireBook(r, handler.Book)
	wirePurchase(r, handler.Purchase, config, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

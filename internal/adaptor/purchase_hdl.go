package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bookvault/internal/dto/request"
	"bookvault/internal/usecase"
	"bookvault/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PurchaseHandler struct {
	service usecase.PurchaseService
	log     *zap.Logger
}

func NewPurchaseHandler(service usecase.PurchaseService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		log:     log.With(zap.String("handler", "purchase")),
	}
}

// Purchase handles POST /api/books/purchase (protected)
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	purchase, err := h.service.Purchase(r.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(w, err, "purchase book")
		return
	}

	utils.ResponseCreated(w, "success", purchase)
}

// AuthorizeDownload handles GET /api/books/{id}/download-authorization (protected)
func (h *PurchaseHandler) AuthorizeDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid book ID", nil)
		return
	}

	auth, err := h.service.AuthorizeDownload(r.Context(), userID, bookID)
	if err != nil {
		h.handleServiceError(w, err, "authorize download")
		return
	}

	// The verdict is the payload; denial is not an HTTP error here
	utils.ResponseSuccess(w, "success", auth)
}

// Download handles GET /api/books/{id}/download (protected)
func (h *PurchaseHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid book ID", nil)
		return
	}

	download, err := h.service.Download(r.Context(), userID, bookID)
	if err != nil {
		h.handleServiceError(w, err, "download book")
		return
	}

	utils.ResponseSuccess(w, "success", download)
}

// Refund handles POST /api/purchases/{id}/refund (protected)
func (h *PurchaseHandler) Refund(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	purchaseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid purchase ID", nil)
		return
	}

	purchase, err := h.service.Refund(r.Context(), userID, purchaseID)
	if err != nil {
		h.handleServiceError(w, err, "refund purchase")
		return
	}

	utils.ResponseSuccess(w, "Purchase refunded", purchase)
}

// handleServiceError maps purchase errors to HTTP responses
func (h *PurchaseHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrBookNotFound):
		h.log.Warn(operation+" failed - book not found", zap.Error(err))
		utils.ResponseNotFound(w, "Book not found")

	case errors.Is(err, usecase.ErrBookUnavailable):
		h.log.Warn(operation+" failed - book unavailable", zap.Error(err))
		utils.ResponseBadRequest(w, "Book is no longer available for purchase", nil)

	case errors.Is(err, usecase.ErrUserNotFound):
		h.log.Warn(operation+" failed - user not found", zap.Error(err))
		utils.ResponseNotFound(w, "User not found")

	case errors.Is(err, usecase.ErrPurchaseNotFound):
		h.log.Warn(operation+" failed - purchase not found", zap.Error(err))
		utils.ResponseNotFound(w, "Purchase not found")

	case errors.Is(err, usecase.ErrAlreadyOwned):
		h.log.Warn(operation+" failed - already owned", zap.Error(err))
		utils.ResponseConflict(w, "Book is already purchased")

	case errors.Is(err, usecase.ErrNotPurchased):
		h.log.Warn(operation+" failed - not purchased", zap.Error(err))
		utils.ResponseForbidden(w, "Book has not been purchased")

	case errors.Is(err, usecase.ErrNoDeviceRegistered):
		h.log.Warn(operation+" failed - no device", zap.Error(err))
		utils.ResponseForbidden(w, "No device is registered for downloads")

	case errors.Is(err, usecase.ErrDownloadLimitReached):
		h.log.Warn(operation+" failed - download limit", zap.Error(err))
		utils.ResponseForbidden(w, "Download limit reached for this purchase")

	case errors.Is(err, usecase.ErrNotPurchaseOwner):
		h.log.Warn(operation+" failed - not owner", zap.Error(err))
		utils.ResponseForbidden(w, "Purchase belongs to another user")

	case errors.Is(err, usecase.ErrNotRefundable):
		h.log.Warn(operation+" failed - not refundable", zap.Error(err))
		utils.ResponseConflict(w, "Only completed purchases can be refunded")

	case strings.Contains(err.Error(), "validation failed"):
		h.log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

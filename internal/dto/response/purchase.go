package response

import (
	"time"

	"bookvault/internal/data/entity"
)

type PurchaseResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	BookID        string                `json:"book_id"`
	PurchasePrice float64               `json:"purchase_price"`
	PaymentMethod string                `json:"payment_method"`
	Status        entity.PurchaseStatus `json:"status"`
	TransactionID *string               `json:"transaction_id"`
	DownloadCount int                   `json:"download_count"`
	MaxDownloads  int                   `json:"max_downloads"`
	CanDownload   bool                  `json:"can_download"`
	DownloadRef   string                `json:"download_ref,omitempty"`
	Book          *BookSummary          `json:"book,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// BookSummary is the short book view embedded in purchase history.
type BookSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	CoverURL *string `json:"cover_url"`
}

func PurchaseToResponse(purchase *entity.Purchase) PurchaseResponse {
	downloadRef := ""
	if purchase.Status == entity.PurchaseStatusCompleted {
		downloadRef = "/api/books/" + purchase.BookID.String() + "/download"
	}

	return PurchaseResponse{
		ID:            purchase.ID.String(),
		UserID:        purchase.UserID.String(),
		BookID:        purchase.BookID.String(),
		PurchasePrice: purchase.PurchasePrice,
		PaymentMethod: purchase.PaymentMethod,
		Status:        purchase.Status,
		TransactionID: purchase.TransactionID,
		DownloadCount: purchase.DownloadCount,
		MaxDownloads:  purchase.MaxDownloads,
		CanDownload:   purchase.CanDownload(),
		DownloadRef:   downloadRef,
		CreatedAt:     purchase.CreatedAt,
	}
}

// DenyReason codes route the client to the right remediation.
type DenyReason string

const (
	DenyReasonNone          DenyReason = "OK"
	DenyReasonNotPurchased  DenyReason = "NOT_PURCHASED"
	DenyReasonNoDevice      DenyReason = "NO_DEVICE"
	DenyReasonLimitExceeded DenyReason = "LIMIT_EXCEEDED"
)

type DownloadAuthorizationResponse struct {
	Permitted bool       `json:"permitted"`
	Reason    DenyReason `json:"reason"`
}

type DownloadResponse struct {
	DownloadURL        string `json:"download_url"`
	ExpiresIn          int    `json:"expires_in"`
	DownloadsRemaining int    `json:"downloads_remaining"`
}

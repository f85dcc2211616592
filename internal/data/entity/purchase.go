package entity

import (
	"github.com/google/uuid"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

type Purchase struct {
	BaseNoDelete
	UserID        uuid.UUID      `db:"user_id"`
	BookID        uuid.UUID      `db:"book_id"`
	PurchasePrice float64        `db:"purchase_price"`
	PaymentMethod string         `db:"payment_method"`
	Status        PurchaseStatus `db:"status"`
	TransactionID *string        `db:"transaction_id"`
	DownloadCount int            `db:"download_count"`
	MaxDownloads  int            `db:"max_downloads"`
}

// CanDownload reports whether this purchase still grants a file handoff.
func (p *Purchase) CanDownload() bool {
	return p.Status == PurchaseStatusCompleted && p.DownloadCount < p.MaxDownloads
}

// DownloadsRemaining is never negative.
func (p *Purchase) DownloadsRemaining() int {
	remaining := p.MaxDownloads - p.DownloadCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

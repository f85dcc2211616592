package usecase

import "errors"

// Domain errors. Handlers map these to HTTP statuses with errors.Is;
// anything unwrapped is treated as a transient failure for the caller to retry.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrBookUnavailable  = errors.New("book is not available")
	ErrPurchaseNotFound = errors.New("purchase not found")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrPasswordIncorrect  = errors.New("current password is incorrect")

	ErrAlreadyOwned = errors.New("you already own this book")

	ErrNotPurchased         = errors.New("you have not purchased this book")
	ErrNoDeviceRegistered   = errors.New("no device is registered for this account")
	ErrDownloadLimitReached = errors.New("download limit exceeded for this book")

	ErrNotPurchaseOwner = errors.New("purchase belongs to another user")
	ErrNotRefundable    = errors.New("only completed purchases can be refunded")
)

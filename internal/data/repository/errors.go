package repository

import "errors"

// ErrDuplicatePurchase is returned when the partial unique index on
// (user_id, book_id) WHERE status = 'completed' rejects an insert.
// Concurrent purchase attempts for the same pair race down to this error.
var ErrDuplicatePurchase = errors.New("duplicate completed purchase")

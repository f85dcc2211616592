package response

import (
	"time"

	"bookvault/internal/data/entity"
)

type UserResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	IsActive         bool      `json:"is_active"`
	RegisteredDevice *string   `json:"registered_device"`
	PurchasedBooks   []string  `json:"purchased_books"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserToResponse exposes the device name only; the device identifier
// stays server side.
func UserToResponse(user *entity.User, purchasedBookIDs []string) UserResponse {
	if purchasedBookIDs == nil {
		purchasedBookIDs = []string{}
	}

	return UserResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		IsActive:         user.IsActive,
		RegisteredDevice: user.RegisteredDeviceName,
		PurchasedBooks:   purchasedBookIDs,
		CreatedAt:        user.CreatedAt,
	}
}

type DeviceResponse struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
}

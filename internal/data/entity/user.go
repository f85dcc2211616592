package entity

type User struct {
	Base
	Email                string  `db:"email"`
	PasswordHash         string  `db:"password"`
	FirstName            string  `db:"first_name"`
	LastName             string  `db:"last_name"`
	IsActive             bool    `db:"is_active"`
	RegisteredDeviceID   *string `db:"registered_device_id"`
	RegisteredDeviceName *string `db:"registered_device_name"`
}

// HasRegisteredDevice reports whether the single device slot is filled.
// Downloads are gated on this account-wide flag, not on a specific device.
func (u *User) HasRegisteredDevice() bool {
	return u.RegisteredDeviceID != nil && *u.RegisteredDeviceID != ""
}

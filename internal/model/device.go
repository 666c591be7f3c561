package model

import "time"

// Device platforms accepted at registration.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// Device is a push-capable endpoint registered by a user.
type Device struct {
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

package core

import (
	"time"
)

type Services struct {
	Auth   *AuthService
	Role   *RoleService
	Access *AccessService
	Device *DeviceService
	Push   *PushService
	Chat   *ChatService
}

// ServicesConfig carries the settings the services need beyond the database.
type ServicesConfig struct {
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

func NewServices(db DB, cfg ServicesConfig, pusher Pusher) *Services {
	roles := NewRoleService(db)
	devices := NewDeviceService(db)
	pushSvc := NewPushService(roles, devices, pusher)

	return &Services{
		Auth:   NewAuthService(db, roles, cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Role:   roles,
		Access: NewAccessService(db, roles),
		Device: devices,
		Push:   pushSvc,
		Chat:   NewChatService(db, pushSvc),
	}
}

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/inboxwatch/internal/model"
)

type DeviceService struct {
	db DB
}

func NewDeviceService(db DB) *DeviceService {
	return &DeviceService{db: db}
}

// Register stores a device token for the user. Re-registering an existing
// token moves it to the new owner and platform.
func (s *DeviceService) Register(ctx context.Context, d *model.Device) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO devices (token, platform, user_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token) DO UPDATE SET platform = EXCLUDED.platform, user_id = EXCLUDED.user_id`,
		d.Token, d.Platform, d.UserID, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

// ListForUsers returns every device owned by any of the given users.
func (s *DeviceService) ListForUsers(ctx context.Context, userIDs []string) ([]model.Device, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT token, platform, user_id, created_at FROM devices
		 WHERE user_id = ANY($1) ORDER BY user_id, token`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.Token, &d.Platform, &d.UserID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

// Delete removes a device token. Deleting a token that is already gone is
// not an error.
func (s *DeviceService) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM devices WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// DeleteOwned removes a device token only if it belongs to the user.
func (s *DeviceService) DeleteOwned(ctx context.Context, userID, token string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM devices WHERE token = $1 AND user_id = $2`, token, userID)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device: %w", ErrNotFound)
	}
	return nil
}

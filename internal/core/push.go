package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/inboxwatch/internal/model"
	"github.com/edvin/inboxwatch/internal/platform"
	"github.com/edvin/inboxwatch/internal/push"
)

const pushDisabledMessage = "push notifications are not configured"

var devicesPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "inboxwatch_push_devices_pruned_total",
	Help: "Device tokens deleted after the provider reported them unregistered",
})

// Pusher delivers a payload to one device.
type Pusher interface {
	Enabled() bool
	Send(ctx context.Context, device model.Device, payload model.PushPayload) error
}

// DeviceStore is the device registry used by fan-out.
type DeviceStore interface {
	ListForUsers(ctx context.Context, userIDs []string) ([]model.Device, error)
	Delete(ctx context.Context, token string) error
}

type PushService struct {
	roles   RoleDirectory
	devices DeviceStore
	pusher  Pusher
}

func NewPushService(roles RoleDirectory, devices DeviceStore, pusher Pusher) *PushService {
	return &PushService{roles: roles, devices: devices, pusher: pusher}
}

// FanOut expands the request's audience to devices and delivers the payload
// to each of them concurrently. It returns once every attempt has settled.
// Devices the provider reports as unregistered are deleted; transient
// failures are reported and left alone.
func (s *PushService) FanOut(ctx context.Context, req model.PushRequest) (*model.DeliveryReport, error) {
	report := &model.DeliveryReport{
		ID:      platform.NewShortID("push_"),
		Results: []model.DeliveryResult{},
	}

	if s.pusher == nil || !s.pusher.Enabled() {
		report.Disabled = true
		report.Message = pushDisabledMessage
		return report, nil
	}

	targets, err := ExpandAudience(ctx, s.roles, req.UserIDs, req.Roles)
	if err != nil {
		return nil, fmt.Errorf("expand audience: %w", err)
	}
	if len(targets) == 0 {
		return report, nil
	}

	devices, err := s.devices.ListForUsers(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("fan out: %w", err)
	}
	if len(devices) == 0 {
		return report, nil
	}

	payload := model.PushPayload{Title: req.Title, Body: req.Body, Data: req.Data}
	logger := zerolog.Ctx(ctx).With().Str("push_id", report.ID).Logger()

	results := make([]model.DeliveryResult, len(devices))
	var g errgroup.Group
	for i, d := range devices {
		g.Go(func() error {
			results[i] = s.deliver(ctx, logger, d, payload)
			return nil
		})
	}
	g.Wait()

	report.Results = results
	report.Total = len(results)
	for _, r := range results {
		if r.Success {
			report.Sent++
		}
	}

	logger.Info().Int("sent", report.Sent).Int("total", report.Total).Msg("push fan-out complete")
	return report, nil
}

func (s *PushService) deliver(ctx context.Context, logger zerolog.Logger, d model.Device, payload model.PushPayload) model.DeliveryResult {
	result := model.DeliveryResult{Device: d}

	err := s.pusher.Send(ctx, d, payload)
	if err == nil {
		result.Success = true
		return result
	}
	result.Error = err.Error()

	if !errors.Is(err, push.ErrDeviceNotRegistered) {
		logger.Warn().Err(err).Str("user_id", d.UserID).Str("platform", d.Platform).Msg("push delivery failed")
		return result
	}

	result.PermanentFailure = true
	if err := s.devices.Delete(ctx, d.Token); err != nil {
		logger.Warn().Err(err).Str("user_id", d.UserID).Msg("failed to prune unregistered device")
		return result
	}
	devicesPrunedTotal.Inc()
	logger.Info().Str("user_id", d.UserID).Str("platform", d.Platform).Msg("pruned unregistered device")
	return result
}

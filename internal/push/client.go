package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/inboxwatch/internal/model"
)

// DefaultAPIURL is the Expo push gateway endpoint.
const DefaultAPIURL = "https://exp.host/--/api/v2/push/send"

// ErrDeviceNotRegistered means the provider will never again accept delivery
// for the token. Callers should delete the device.
var ErrDeviceNotRegistered = errors.New("device not registered")

var deliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inboxwatch_push_deliveries_total",
		Help: "Push deliveries by outcome",
	},
	[]string{"result"},
)

// Client delivers notifications through an Expo-compatible push gateway.
type Client struct {
	apiURL      string
	accessToken string
	timeout     time.Duration
	httpClient  *http.Client
}

// NewClient creates a push client. An empty access token leaves the client
// disabled.
func NewClient(apiURL, accessToken string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:      apiURL,
		accessToken: accessToken,
		timeout:     timeout,
		httpClient:  &http.Client{},
	}
}

// Enabled reports whether a provider credential is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.accessToken != ""
}

type message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

// Send delivers one payload to one device. It returns ErrDeviceNotRegistered
// (wrapped) for permanently dead tokens and a plain error for anything else.
func (c *Client) Send(ctx context.Context, device model.Device, payload model.PushPayload) error {
	err := c.send(ctx, device, payload)
	switch {
	case err == nil:
		deliveriesTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrDeviceNotRegistered):
		deliveriesTotal.WithLabelValues("unregistered").Inc()
	default:
		deliveriesTotal.WithLabelValues("failed").Inc()
	}
	return err
}

func (c *Client) send(ctx context.Context, device model.Device, payload model.PushPayload) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(message{
		To:    device.Token,
		Title: payload.Title,
		Body:  payload.Body,
		Data:  payload.Data,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return fmt.Errorf("push to %s: %w", device.Platform, ErrDeviceNotRegistered)
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push to %s: status %d: %s", device.Platform, resp.StatusCode, string(respBody))
	}

	var result struct {
		Data ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode push ticket: %w", err)
	}

	if result.Data.Status == "error" {
		if result.Data.Details.Error == "DeviceNotRegistered" {
			return fmt.Errorf("push to %s: %s: %w", device.Platform, result.Data.Message, ErrDeviceNotRegistered)
		}
		return fmt.Errorf("push to %s: %s %s", device.Platform, result.Data.Details.Error, result.Data.Message)
	}
	return nil
}

package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/inboxwatch/internal/model"
)

var testDevice = model.Device{Token: "ExponentPushToken[abc]", Platform: model.PlatformIOS, UserID: "u1"}

func TestClient_Enabled(t *testing.T) {
	assert.False(t, NewClient("", "", time.Second).Enabled())
	assert.True(t, NewClient("", "token", time.Second).Enabled())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestNewClient_DefaultURL(t *testing.T) {
	c := NewClient("", "token", time.Second)
	assert.Equal(t, DefaultAPIURL, c.apiURL)
}

func TestClient_Send_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var msg map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "ExponentPushToken[abc]", msg["to"])
		assert.Equal(t, "New message", msg["title"])
		assert.Equal(t, "Hello", msg["body"])
		assert.Equal(t, map[string]any{"conversation_id": "c1"}, msg["data"])

		w.Write([]byte(`{"data":{"status":"ok","id":"ticket-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.Send(context.Background(), testDevice, model.PushPayload{
		Title: "New message",
		Body:  "Hello",
		Data:  map[string]string{"conversation_id": "c1"},
	})
	require.NoError(t, err)
}

func TestClient_Send_DeviceNotRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":"error","message":"not a registered push token","details":{"error":"DeviceNotRegistered"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.Send(context.Background(), testDevice, model.PushPayload{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotRegistered))
}

func TestClient_Send_Gone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.Send(context.Background(), testDevice, model.PushPayload{Title: "t", Body: "b"})
	assert.True(t, errors.Is(err, ErrDeviceNotRegistered))
}

func TestClient_Send_RateLimitedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.Send(context.Background(), testDevice, model.PushPayload{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeviceNotRegistered))
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_Send_ProviderErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":"error","message":"too big","details":{"error":"MessageTooBig"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.Send(context.Background(), testDevice, model.PushPayload{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeviceNotRegistered))
	assert.Contains(t, err.Error(), "MessageTooBig")
}

func TestClient_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "secret", 50*time.Millisecond)
	start := time.Now()
	err := c.Send(context.Background(), testDevice, model.PushPayload{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeviceNotRegistered))
	assert.Less(t, time.Since(start), 2*time.Second)
}

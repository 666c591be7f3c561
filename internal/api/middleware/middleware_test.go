package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/inboxwatch/internal/model"
)

type fakeValidator struct {
	valid map[string]string
}

func (f fakeValidator) ValidateToken(token string) (*model.JWTClaims, error) {
	sub, ok := f.valid[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &model.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}, nil
}

type fakeChecker struct {
	admins map[string]bool
	err    error
}

func (f fakeChecker) IsAdmin(_ context.Context, userID string) (bool, error) {
	return f.admins[userID], f.err
}

func subjectEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Write([]byte(claims.Subject))
	})
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestAuth(t *testing.T) {
	handler := Auth(fakeValidator{valid: map[string]string{"good": "u1"}})(subjectEcho())

	tests := []struct {
		name    string
		header  string
		code    int
		wantErr string
	}{
		{"valid", "Bearer good", http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "missing authorization header"},
		{"no prefix", "good", http.StatusUnauthorized, "invalid authorization format"},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid authorization format"},
		{"rejected", "Bearer bad", http.StatusUnauthorized, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorBody(t, rec))
			} else {
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

func TestAuth_QueryTokenOnlyForUpgrades(t *testing.T) {
	handler := Auth(fakeValidator{valid: map[string]string{"good": "u1"}})(subjectEcho())

	req := httptest.NewRequest("GET", "/api/v1/stream?token=good", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/me?token=good", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	checker := fakeChecker{admins: map[string]bool{"admin-1": true}}

	tests := []struct {
		name    string
		subject string
		checker fakeChecker
		code    int
	}{
		{"admin", "admin-1", checker, http.StatusOK},
		{"agent", "agent-1", checker, http.StatusForbidden},
		{"lookup error", "admin-1", fakeChecker{err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(tt.checker)(subjectEcho())
			req := httptest.NewRequest("POST", "/api/v1/push/send", nil)
			req = req.WithContext(WithClaims(req.Context(), &model.JWTClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: tt.subject},
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRequireAdmin_NoClaims(t *testing.T) {
	handler := RequireAdmin(fakeChecker{})(subjectEcho())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/push/send", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/me", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusWriter_RecordsStatus(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/geoposts-service/internal/config"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{JWTSecret: testSecret, Issuer: "geoposts", TokenTTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager(config.AuthConfig{})
	assert.Error(t, err)
}

func TestManager_RoundTrip(t *testing.T) {
	m := newManager(t)

	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "geoposts", claims.Issuer)
}

func TestManager_RejectsBadTokens(t *testing.T) {
	m := newManager(t)

	other, err := NewManager(config.AuthConfig{JWTSecret: strings.Repeat("x", 40), Issuer: "geoposts", TokenTTL: time.Hour})
	require.NoError(t, err)
	foreign, err := other.GenerateToken("user-1")
	require.NoError(t, err)

	expiredManager := newManager(t)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredManager.GenerateToken("user-1")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	m := newManager(t)
	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	var gotUser string
	var gotErr error
	handler := Middleware(m, func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserID(r.Context())
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
		wantErr    error
	}{
		{"valid", "Bearer " + token, http.StatusOK, "user-1", nil},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user-1", nil},
		{"missing", "", http.StatusUnauthorized, "", ErrMissingToken},
		{"basic scheme", "Basic abc", http.StatusUnauthorized, "", ErrMissingToken},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotErr = "", nil
			req := httptest.NewRequest(http.MethodGet, "/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
			if tt.wantErr != nil {
				assert.ErrorIs(t, gotErr, tt.wantErr)
			}
		})
	}
}

func TestMiddleware_WebsocketQueryToken(t *testing.T) {
	m := newManager(t)
	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	var gotUser string
	handler := Middleware(m, func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/posts/p/comments/stream?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "user-1", gotUser)

	// без апгрейда параметр игнорируется
	req = httptest.NewRequest(http.MethodGet, "/posts?access_token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

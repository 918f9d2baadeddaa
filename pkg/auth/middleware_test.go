package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-at-least-32-characters!!"

func adminRequest(t *testing.T, svc AuthService) *http.Request {
	t.Helper()

	token, err := svc.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/games/import", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAdmin_AllowsAdminToken(t *testing.T) {
	svc := NewAuthService(testSecret)
	mw := NewMiddleware(svc, zap.NewNop())

	var gotClaims *Claims
	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, adminRequest(t, svc))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "ops", gotClaims.Subject)
	assert.True(t, gotClaims.IsAdmin())
}

func TestRequireAdmin_RejectsMissingToken(t *testing.T) {
	mw := NewMiddleware(NewAuthService(testSecret), zap.NewNop())
	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/games/import", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_RejectsWrongSecret(t *testing.T) {
	other := NewAuthService("a-completely-different-signing-key!!")
	mw := NewMiddleware(NewAuthService(testSecret), zap.NewNop())
	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	handler(rec, adminRequest(t, other))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_RejectsNonAdminRole(t *testing.T) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "reader",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: "viewer",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	mw := NewMiddleware(NewAuthService(testSecret), zap.NewNop())
	handler := mw.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/games/123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidateRequest_RejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(testSecret)
	token, err := svc.IssueToken("ops", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = svc.ValidateRequest(req)
	assert.Error(t, err)
}

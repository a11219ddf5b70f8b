package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"profile-service/config"
	"profile-service/handlers"
	"profile-service/utils"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

type stubSessionStore struct {
	entries map[string]string
	saveErr error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{entries: make(map[string]string)}
}

func (s *stubSessionStore) Save(_ context.Context, sessionID, email string, _ time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries[sessionID] = email
	return nil
}

func (s *stubSessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	_, ok := s.entries[sessionID]
	return ok, nil
}

func (s *stubSessionStore) Revoke(_ context.Context, sessionID string) error {
	delete(s.entries, sessionID)
	return nil
}

func (s *stubSessionStore) Close() error { return nil }

type stubGoogleFlow struct {
	user        utils.GoogleUser
	idToken     string
	exchangeErr error
}

func (g stubGoogleFlow) LoginURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (g stubGoogleFlow) Exchange(_ context.Context, _ string) (utils.GoogleUser, string, error) {
	return g.user, g.idToken, g.exchangeErr
}

func adminTestConfig(t *testing.T) config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	assert.NoError(t, err)

	cfg := testConfig()
	cfg.Admin.PasswordHash = string(hash)
	return cfg
}

func TestAdminLoginHandler(t *testing.T) {
	cfg := adminTestConfig(t)
	sessions := newStubSessionStore()
	handler := handlers.NewAuthHandler(cfg, sessions, nil)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "correct horse"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(3600), resp["expires_in"])
	assert.Len(t, sessions.entries, 1)

	token, _ := resp["token"].(string)
	claims, err := utils.ParseAdminToken(token, cfg.Admin.TokenSecret)
	assert.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Contains(t, sessions.entries, claims.ID)
}

func TestAdminLoginHandler_WrongPassword(t *testing.T) {
	handler := handlers.NewAuthHandler(adminTestConfig(t), newStubSessionStore(), nil)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "wrong"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Invalid credentials", resp["message"])
}

func TestAdminLoginHandler_UnknownEmail(t *testing.T) {
	handler := handlers.NewAuthHandler(adminTestConfig(t), newStubSessionStore(), nil)

	body, _ := json.Marshal(map[string]string{"email": "intruder@example.com", "password": "correct horse"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginHandler_MissingFields(t *testing.T) {
	handler := handlers.NewAuthHandler(adminTestConfig(t), newStubSessionStore(), nil)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLoginHandler_SessionStoreDown(t *testing.T) {
	sessions := newStubSessionStore()
	sessions.saveErr = errors.New("connection refused")
	handler := handlers.NewAuthHandler(adminTestConfig(t), sessions, nil)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "correct horse"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func loginAdmin(t *testing.T, handler *handlers.AuthHandler) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "correct horse"})
	req := httptest.NewRequest("POST", "/api/auth/admin", bytes.NewBuffer(body))
	rec := executeRequest(handler.AdminLoginHandler, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	token, _ := decodeBody(t, rec)["token"].(string)
	return token
}

func TestVerifyHandler(t *testing.T) {
	sessions := newStubSessionStore()
	handler := handlers.NewAuthHandler(adminTestConfig(t), sessions, nil)
	token := loginAdmin(t, handler)

	req := httptest.NewRequest("GET", "/api/auth/verify", nil)
	req.Header.Set("Admin-Token", token)
	rec := executeRequest(handler.VerifyHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["isValid"])
}

func TestVerifyHandler_BearerToken(t *testing.T) {
	sessions := newStubSessionStore()
	handler := handlers.NewAuthHandler(adminTestConfig(t), sessions, nil)
	token := loginAdmin(t, handler)

	req := httptest.NewRequest("GET", "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := executeRequest(handler.VerifyHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["isValid"])
}

func TestVerifyHandler_NoToken(t *testing.T) {
	handler := handlers.NewAuthHandler(adminTestConfig(t), newStubSessionStore(), nil)

	req := httptest.NewRequest("GET", "/api/auth/verify", nil)
	rec := executeRequest(handler.VerifyHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, false, resp["isValid"])
}

func TestVerifyHandler_RevokedSession(t *testing.T) {
	sessions := newStubSessionStore()
	handler := handlers.NewAuthHandler(adminTestConfig(t), sessions, nil)
	token := loginAdmin(t, handler)

	logoutReq := httptest.NewRequest("POST", "/api/auth/logout", nil)
	logoutReq.Header.Set("Admin-Token", token)
	logoutRec := executeRequest(handler.LogoutHandler, logoutReq)
	assert.Equal(t, http.StatusOK, logoutRec.Code)
	assert.Empty(t, sessions.entries)

	req := httptest.NewRequest("GET", "/api/auth/verify", nil)
	req.Header.Set("Admin-Token", token)
	rec := executeRequest(handler.VerifyHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, false, resp["isValid"])
}

func TestLogoutHandler_BearerToken(t *testing.T) {
	sessions := newStubSessionStore()
	handler := handlers.NewAuthHandler(adminTestConfig(t), sessions, nil)
	token := loginAdmin(t, handler)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := executeRequest(handler.LogoutHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sessions.entries)
}

func TestGoogleLoginHandler(t *testing.T) {
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), stubGoogleFlow{})

	req := httptest.NewRequest("GET", "/api/auth/google/login", nil)
	rec := executeRequest(handler.GoogleLoginHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	url, _ := resp["url"].(string)
	assert.Contains(t, url, "state=")

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			stateCookie = cookie
			break
		}
	}
	if assert.NotNil(t, stateCookie) {
		assert.True(t, stateCookie.HttpOnly)
		assert.Len(t, stateCookie.Value, 64)
	}
}

func TestGoogleLoginHandler_NotConfigured(t *testing.T) {
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), nil)

	req := httptest.NewRequest("GET", "/api/auth/google/login", nil)
	rec := executeRequest(handler.GoogleLoginHandler, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGoogleCallbackHandler(t *testing.T) {
	flow := stubGoogleFlow{
		user:    utils.GoogleUser{GoogleID: "google-sub-1", Email: "ada@example.com", Name: "Ada"},
		idToken: "raw-id-token",
	}
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), flow)

	req := httptest.NewRequest("GET", "/api/auth/google/callback?state=nonce&code=auth-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: utils.HashState("nonce")})
	rec := executeRequest(handler.GoogleCallbackHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "raw-id-token", resp["token"])
	user, _ := resp["user"].(map[string]interface{})
	assert.Equal(t, "google-sub-1", user["googleId"])
	assert.Equal(t, "ada@example.com", user["email"])
}

func TestGoogleCallbackHandler_StateMismatch(t *testing.T) {
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), stubGoogleFlow{})

	req := httptest.NewRequest("GET", "/api/auth/google/callback?state=tampered&code=auth-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: utils.HashState("original")})
	rec := executeRequest(handler.GoogleCallbackHandler, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Invalid state", resp["message"])
}

func TestGoogleCallbackHandler_MissingParams(t *testing.T) {
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), stubGoogleFlow{})

	req := httptest.NewRequest("GET", "/api/auth/google/callback", nil)
	rec := executeRequest(handler.GoogleCallbackHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleCallbackHandler_ExchangeFails(t *testing.T) {
	flow := stubGoogleFlow{exchangeErr: errors.New("invalid grant")}
	handler := handlers.NewAuthHandler(testConfig(), newStubSessionStore(), flow)

	req := httptest.NewRequest("GET", "/api/auth/google/callback?state=nonce&code=expired", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: utils.HashState("nonce")})
	rec := executeRequest(handler.GoogleCallbackHandler, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Invalid token", resp["message"])
}

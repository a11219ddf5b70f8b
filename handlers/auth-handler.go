package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"profile-service/config"
	"profile-service/middleware"
	"profile-service/store"
	"profile-service/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	compareHashAndPassword = bcrypt.CompareHashAndPassword
	generateAdminToken     = utils.GenerateAdminToken
	generateSessionID      = utils.GenerateSessionID
)

// GoogleAuthFlow drives the OAuth code exchange. Implemented by
// utils.GoogleAuthenticator; stubbed in tests.
type GoogleAuthFlow interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (utils.GoogleUser, string, error)
}

type AuthHandler struct {
	cfg      config.Config
	sessions store.AdminSessionStore
	google   GoogleAuthFlow
}

func NewAuthHandler(cfg config.Config, sessions store.AdminSessionStore, google GoogleAuthFlow) *AuthHandler {
	return &AuthHandler{cfg: cfg, sessions: sessions, google: google}
}

const stateCookieName = "oauth_state"

// AdminLoginHandler exchanges the admin password for a revocable session
// token. POST /api/auth/admin
func (h *AuthHandler) AdminLoginHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}
	if req.Email == "" || req.Password == "" {
		return middleware.NewValidationError("Please provide an email and password", nil)
	}

	if h.cfg.Admin.PasswordHash == "" || !containsEmail(h.cfg.Admin.Emails, req.Email) {
		return middleware.NewAuthError("Invalid credentials", nil)
	}
	if err := compareHashAndPassword([]byte(h.cfg.Admin.PasswordHash), []byte(req.Password)); err != nil {
		return middleware.NewAuthError("Invalid credentials", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		log.Printf("Error generating session id: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Could not create session", err)
	}

	claims := utils.AdminClaims{Email: req.Email, Role: "admin"}
	claims.ID = sessionID
	token, err := generateAdminToken(claims, h.cfg.Admin.TokenTTL, h.cfg.Admin.Issuer, h.cfg.Admin.TokenSecret)
	if err != nil {
		log.Printf("Error generating admin token: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Could not generate token", err)
	}

	if h.sessions != nil {
		if err := h.sessions.Save(r.Context(), sessionID, req.Email, h.cfg.Admin.TokenTTL); err != nil {
			log.Printf("Error saving session: %v", err)
			return middleware.NewAppError(http.StatusInternalServerError, "Could not create session", err)
		}
	}

	json.NewEncoder(w).Encode(JSONResponse{
		"success":    true,
		"token":      token,
		"expires_in": int(h.cfg.Admin.TokenTTL.Seconds()),
	})
	return nil
}

// VerifyHandler reports whether the presented admin token is still good.
// Always 200; validity is in the body. GET /api/auth/verify
func (h *AuthHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	isValid := false
	if token := middleware.AdminTokenFromRequest(r); token != "" {
		if claims, err := utils.ParseAdminToken(token, h.cfg.Admin.TokenSecret); err == nil {
			isValid = containsEmail(h.cfg.Admin.Emails, claims.Email)
			if isValid && h.sessions != nil {
				active, err := h.sessions.Exists(r.Context(), claims.ID)
				isValid = err == nil && active
			}
		}
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "isValid": isValid})
	return nil
}

// LogoutHandler revokes the admin session behind the presented token.
// POST /api/auth/logout
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	if token := middleware.AdminTokenFromRequest(r); token != "" && h.sessions != nil {
		if claims, err := utils.ParseAdminToken(token, h.cfg.Admin.TokenSecret); err == nil {
			_ = h.sessions.Revoke(r.Context(), claims.ID)
		}
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "message": "Logged out successfully"})
	return nil
}

// GoogleLoginHandler starts the OAuth flow: issues a state nonce and returns
// the consent URL. GET /api/auth/google/login
func (h *AuthHandler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	if h.google == nil {
		return middleware.NewAppError(http.StatusServiceUnavailable, "Google sign-in is not configured", nil)
	}

	state, err := generateSessionID()
	if err != nil {
		log.Printf("Error generating state: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Could not start sign-in", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    utils.HashState(state),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.AppEnv == "prod",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((10 * time.Minute).Seconds()),
	})

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "url": h.google.LoginURL(state)})
	return nil
}

// GoogleCallbackHandler finishes the OAuth flow: checks the state nonce,
// exchanges the code and returns the verified identity plus the raw ID token
// the client will present on later requests. GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	if h.google == nil {
		return middleware.NewAppError(http.StatusServiceUnavailable, "Google sign-in is not configured", nil)
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		return middleware.NewValidationError("state and code are required", nil)
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value != utils.HashState(state) {
		return middleware.NewAuthError("Invalid state", err)
	}

	user, idToken, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		return middleware.NewAuthError("Invalid token", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})

	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"token":   idToken,
		"user": JSONResponse{
			"googleId": user.GoogleID,
			"email":    user.Email,
			"name":     user.Name,
			"picture":  user.Picture,
		},
	})
	return nil
}

func containsEmail(emails []string, target string) bool {
	for _, email := range emails {
		if email == target {
			return true
		}
	}
	return false
}

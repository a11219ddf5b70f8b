package middleware

import (
	"context"
	"net/http"
	"strings"

	"profile-service/config"
	"profile-service/store"
	"profile-service/utils"
)

type contextKey string

const (
	googleUserKey  contextKey = "googleUser"
	adminClaimsKey contextKey = "adminClaims"
)

// DeviceIDHeader carries the anonymous ownership credential. There is no
// authentication behind it; it is an opaque client-generated value.
const DeviceIDHeader = "X-Device-ID"

// GoogleVerifier validates a raw Google ID token. Implemented by
// utils.GoogleAuthenticator; stubbed in tests.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (utils.GoogleUser, error)
}

// GoogleAuthMiddleware requires a verifiable Google ID token. An invalid or
// expired token is treated the same as a missing one.
func GoogleAuthMiddleware(verifier GoogleVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || verifier == nil {
				writeErrorResponse(w, http.StatusUnauthorized, "No token provided")
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), googleUserKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GoogleUserFromContext returns the verified Google identity, if any.
func GoogleUserFromContext(ctx context.Context) (*utils.GoogleUser, bool) {
	user, ok := ctx.Value(googleUserKey).(*utils.GoogleUser)
	return user, ok
}

func ContextWithGoogleUser(ctx context.Context, user *utils.GoogleUser) context.Context {
	return context.WithValue(ctx, googleUserKey, user)
}

// AdminMiddleware requires a valid admin session token whose session has not
// been revoked and whose email is on the configured allowlist.
func AdminMiddleware(cfg config.Config, sessions store.AdminSessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AdminTokenFromRequest(r)
			if token == "" {
				writeErrorResponse(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := utils.ParseAdminToken(token, cfg.Admin.TokenSecret)
			if err != nil {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if sessions != nil {
				active, err := sessions.Exists(r.Context(), claims.ID)
				if err != nil || !active {
					writeErrorResponse(w, http.StatusUnauthorized, "Session revoked")
					return
				}
			}

			if !contains(cfg.Admin.Emails, claims.Email) {
				writeErrorResponse(w, http.StatusForbidden, "Only admins can access this resource")
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns the admin session claims, if any.
func AdminClaimsFromContext(ctx context.Context) (*utils.AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(*utils.AdminClaims)
	return claims, ok
}

func ContextWithAdminClaims(ctx context.Context, claims *utils.AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// AdminTokenFromRequest extracts the admin credential from either the
// Admin-Token header or a Bearer Authorization header.
func AdminTokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("Admin-Token"); token != "" {
		return token
	}
	return bearerToken(r)
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

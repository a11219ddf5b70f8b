package utils

import (
	"context"
	"fmt"

	"profile-service/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleUser is the identity extracted from a verified Google ID token.
type GoogleUser struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

type googleClaims struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
}

// GoogleAuthenticator verifies Google ID tokens and drives the OAuth code
// exchange. Verification checks signature, audience and expiry; anything
// invalid is reported as an error and never as a partial identity.
type GoogleAuthenticator struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogleAuthenticator(ctx context.Context, cfg config.GoogleConfig, redirectURL string) (*GoogleAuthenticator, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("google client id is not configured")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &GoogleAuthenticator{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: redirectURL,
			Scopes:      []string{oidc.ScopeOpenID, "profile", "email"},
			Endpoint:    endpoints.Google,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// LoginURL returns the Google consent page URL carrying the given state.
func (g *GoogleAuthenticator) LoginURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a verified Google identity.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (GoogleUser, string, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, "", fmt.Errorf("code exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return GoogleUser{}, "", fmt.Errorf("token response missing id_token")
	}

	user, err := g.Verify(ctx, rawIDToken)
	if err != nil {
		return GoogleUser{}, "", err
	}
	return user, rawIDToken, nil
}

// Verify validates a raw ID token and extracts the subject identity.
func (g *GoogleAuthenticator) Verify(ctx context.Context, rawIDToken string) (GoogleUser, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return GoogleUser{}, fmt.Errorf("read claims: %w", err)
	}
	if claims.Sub == "" {
		return GoogleUser{}, fmt.Errorf("id token missing subject")
	}

	email := claims.Email
	if !claims.Verified {
		email = ""
	}

	return GoogleUser{
		GoogleID: claims.Sub,
		Email:    email,
		Name:     claims.Name,
		Picture:  claims.Picture,
	}, nil
}

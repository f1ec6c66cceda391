// Package auth runs the OAuth flow against the health API and keeps the
// resulting tokens fresh.
package auth

import (
	"fmt"

	"golang.org/x/oauth2"

	"burnpace/internal/config"
	"burnpace/internal/store"
)

// Scopes required to read active energy and the move goal
var Scopes = []string{"active_energy:read", "goals:read"}

// RedirectURL is the local callback the provider redirects to
func RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", CallbackPort)
}

// NewOAuthConfig creates an oauth2.Config for the configured remote API
func NewOAuthConfig(remote config.RemoteConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     remote.ClientID,
		ClientSecret: remote.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  remote.AuthURL,
			TokenURL: remote.TokenURL,
		},
		RedirectURL: RedirectURL(),
		Scopes:      Scopes,
	}
}

// AuthResult contains the token and subject from a successful login
type AuthResult struct {
	Token   *oauth2.Token
	Subject string
}

// Stored converts the result into the persisted form
func (r *AuthResult) Stored() *store.Auth {
	return &store.Auth{
		Subject:      r.Subject,
		AccessToken:  r.Token.AccessToken,
		RefreshToken: r.Token.RefreshToken,
		ExpiresAt:    r.Token.Expiry,
	}
}

// TokenFromStored rebuilds an oauth2 token from persisted auth
func TokenFromStored(a *store.Auth) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
		TokenType:    "Bearer",
	}
}

// ExtractSubject reads the user id the provider returns next to the token.
func ExtractSubject(token *oauth2.Token) string {
	switch v := token.Extra("subject").(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

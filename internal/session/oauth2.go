package session

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OAuth2Refresher renews tokens at an OAuth2 token endpoint with the
// refresh_token grant (the managed provider's hosted endpoint).
type OAuth2Refresher struct {
	Config *oauth2.Config
}

// NewOAuth2Refresher returns nil when the endpoint is not configured, so the
// session expires instead of refreshing.
func NewOAuth2Refresher(tokenURL, clientID string) Refresher {
	if tokenURL == "" || clientID == "" {
		return nil
	}
	return &OAuth2Refresher{Config: &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}}
}

// Refresh prefers the id_token from the response, which is what the backend
// verifies, and falls back to the access token.
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	tok, err := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Credentials{}, errors.Wrap(err, "refresh token")
	}
	bearer := tok.AccessToken
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		bearer = id
	}
	creds := Credentials{Token: bearer, RefreshToken: tok.RefreshToken}
	if exp, ok := ExpiryFromJWT(bearer); ok {
		creds.Expiry = exp
	} else {
		creds.Expiry = tok.Expiry
	}
	return creds, nil
}

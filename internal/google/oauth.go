package google

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables holding the client registration.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURL  = "GOOGLE_REDIRECT_URL"
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string
}

// Validate checks that the client id and secret are set.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%s and %s must be set", EnvClientID, EnvClientSecret)
	}
	return nil
}

// OAuthConfig returns the oauth2 configuration against Google's endpoints.
func (c Config) OAuthConfig() *oauth2.Config {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       append([]string(nil), scopes...),
	}
}

// Package google holds the Google OAuth2 configuration and the per-session
// credential store used to authorize Calendar API calls.
//
// Credentials are keyed by chat session id and kept in an mcp-oauth
// storage.TokenStore. SessionTokenProvider refreshes expired access tokens
// before handing them out and writes the refreshed token back.
package google

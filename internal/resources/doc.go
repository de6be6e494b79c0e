// Package resources provides MCP resources for exposing session data.
// Resources are read-only data sources that MCP clients can fetch. Each
// resource is a template keyed by session id, so every chat session sees
// only its own remembered listing and staged changes.
package resources

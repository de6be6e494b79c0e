// Package logging provides structured logging utilities for calassist.
//
// All packages log through log/slog using the attribute helpers defined
// here so that keys stay consistent across the chat handler, the tool
// executor and the calendar adapter.
//
// # Key Features
//
//   - Canonical attribute keys (operation, tool, session, calendar_id, iteration)
//   - PII sanitization: attendee emails and session ids are hashed
//   - Logger adapter interface for components that take an injected logger
//
// # Usage Patterns
//
//	logger := logging.WithSession(slog.Default(), sessionID)
//	logger.Info("tool dispatched",
//	    logging.Tool("delete_event"),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - User and attendee emails are hashed to prevent PII leakage while allowing correlation
//   - Session identifiers are hashed because they address cached calendar state
//   - Tokens are never logged directly
package logging

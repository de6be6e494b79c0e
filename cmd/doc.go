// Package cmd implements the command-line interface for calassist.
//
// This package provides the following commands:
//   - serve: Start the chat service, optionally with an MCP surface
//   - generate-docs: Generate markdown documentation for the calendar tools
//   - version: Display version information
package cmd

// Package calendar_tools implements the seven calendar tools the assistant
// exposes to the language model and to MCP clients.
//
// Every call goes through the Dispatcher: arguments are validated against the
// tool's JSON schema, decoded into a typed argument struct and handed to the
// tool handler. Handlers never return provider failures as Go errors for
// domain outcomes; they return a Result whose actions describe what happened
// (a list, a preview waiting for confirmation, a created event, a validation
// error and so on).
//
// Mutating tools (create_event, update_event, delete_event) are staged:
//
//  1. Without confirmed=true the change is validated, resolved to its target
//     and stored in the session's pending slot; the result asks for
//     confirmation and, when attendees would be invited, for a notification
//     choice.
//  2. With confirmed=true the pending change (or a fully specified one-shot
//     request) is executed exactly once. The pending slot is cleared whether
//     the provider call succeeds or fails, and the session's cached list is
//     refreshed on success so indexes stay valid.
//
// Targets may be given as a provider id, a 1-based index into the last list,
// or a "where" filter. A filter matching several events yields the candidate
// list unless apply_to_all is set, in which case each match is processed
// independently and the outcome is aggregated per item.
package calendar_tools

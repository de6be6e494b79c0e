// Package session holds per-session conversational state for the calendar
// assistant.
//
// A session owns the last materialized event list (so users can refer to
// "item 3"), a snapshot of the full records of that list for previews, and
// one pending slot per mutation kind (create, update, delete) for staged
// confirmation.
//
// State is persisted through a Store. MemoryStore keeps it in-process with a
// periodic sweep of expired sessions; ValkeyStore keeps it in an external
// Valkey/Redis instance with key expiry so several replicas can share it.
// Both stores serialize State as JSON, so callers always work on a private
// copy and must Save after mutating.
//
// The Resolver maps user references (indexes, bare ids, "where" filters) to
// provider event references, refreshing the cached list from the provider
// when needed. Locker serializes work for one session id.
package session

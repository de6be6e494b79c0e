// Package filter evaluates structured event filters.
//
// A Spec is a set of independent optional predicates over the normalized
// calendar.Event record. Apply keeps the events that satisfy every predicate
// and preserves their order; an empty Spec keeps everything. String
// predicates use case-insensitive substring matching. A predicate that
// cannot be evaluated for an event, such as a duration bound on an event
// without an end, excludes that event.
//
// The same engine backs list_events filtering and "where" target resolution
// for update and delete requests.
package filter

// Package batch applies one calendar mutation to a set of events.
//
// It is used when a request targets every event matched by a filter
// ("apply to all"): each event is processed as an independent provider call
// and per-item successes and failures are aggregated instead of failing the
// whole batch on the first error.
package batch

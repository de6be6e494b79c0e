// Package timeutil normalizes user-facing times to the provider wire format.
//
// All user input is interpreted as wall-clock time in Korea Standard Time
// (UTC+09:00). Offsets supplied by callers are discarded rather than
// converted, so "13:00Z" and "13:00+09:00" both mean 13:00 KST. Values are
// rendered back as RFC 3339 strings carrying the +09:00 offset.
package timeutil

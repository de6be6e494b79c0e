// Package common provides shared helpers for calendar tool dispatch.
package common

package common

import "errors"

// Sentinel errors shared by clients, services and the HTTP layer.
// Callers wrap them with context using fmt.Errorf("...: %w", err)
// and the server maps them to status codes with errors.Is.
var (
	// ErrInvalidParameter marks malformed or unsupported request input (400).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotFound marks a request that produced no data (404).
	ErrNotFound = errors.New("not found")

	// ErrUnknownIndicator marks an indicator name outside the registry (404).
	ErrUnknownIndicator = errors.New("unknown indicator")

	// ErrInsufficientData marks a correlation request without two overlapping series (400).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUpstream marks a failure talking to a third-party provider (500).
	ErrUpstream = errors.New("upstream error")
)

package domain

import "errors"

// Errors surfaced at the request boundary.
var (
	// ErrProtocolNotFound is returned for an unknown protocol id.
	ErrProtocolNotFound = errors.New("protocol not found")

	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidAddress is returned for addresses that are not 0x + 40 hex digits.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidQuoteRequest is returned when a swap quote cannot be computed.
	ErrInvalidQuoteRequest = errors.New("invalid quote request")

	// ErrUnknownSymbol is returned for symbols the oracle does not track.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

package domain

import "errors"

var (
	// ErrInvalidEvent is returned when a feed message lacks required identity fields
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnknownEventKind is returned when no handler owns the event kind
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrContractRead is returned when an on-chain state read fails after retries
	ErrContractRead = errors.New("contract read failed")
)

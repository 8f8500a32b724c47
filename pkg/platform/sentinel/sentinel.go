package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not transport concerns:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: decision already taken for a terminal request, or unique value taken
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrInvalidInput: caller-supplied value fails a business rule
// - ErrUnavailable: service or resource temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)

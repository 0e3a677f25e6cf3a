package models

import "errors"

var (
	// ErrInvalidParams is returned when run parameters are rejected before any service call.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrPriceUnavailable is returned when a quote lacks a usable bid or ask.
	ErrPriceUnavailable = errors.New("no price available")
	// ErrNoMatchingContracts is returned when no eligible call contract exists for a leg.
	ErrNoMatchingContracts = errors.New("no matching contracts")
	// ErrMalformedCatalog is returned when a contract catalog cannot be parsed.
	ErrMalformedCatalog = errors.New("malformed contract catalog")
)

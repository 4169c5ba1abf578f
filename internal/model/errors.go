package model

import "github.com/rotisserie/eris"

// Sentinel errors shared across the service. Components wrap these with
// context via eris; the HTTP layer checks them with eris.Is to pick a
// status code. Anything else is treated as a computation failure.
var (
	// ErrNotFound means a referenced user, sector or question does not exist.
	ErrNotFound = eris.New("not found")

	// ErrInvalidInput means a required field is missing or a value falls
	// outside the recognized enumeration.
	ErrInvalidInput = eris.New("invalid input")
)

package services

import "errors"

// Error taxonomy shared by the directory and the ledger. Handlers match
// these with errors.Is and map them to HTTP status codes.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

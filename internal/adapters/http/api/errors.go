package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoCSV        = errors.New("no csv file provided")
	ErrTooLarge     = errors.New("request body too large")
)

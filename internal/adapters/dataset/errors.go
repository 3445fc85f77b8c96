package dataset

import "errors"

// Sentinel kinds for dataset errors. Every load failure wraps one of them.
var (
	ErrFileNotFound  = errors.New("dataset file not found")
	ErrUnreadable    = errors.New("dataset file unreadable")
	ErrMalformed     = errors.New("dataset file malformed")
	ErrMissingColumn = errors.New("dataset column missing")
)

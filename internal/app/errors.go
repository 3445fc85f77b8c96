package service

import "errors"

// Sentinel errors returned by Service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrLoad       = errors.New("dataset load failed")
)

package shared

import "errors"

var (
	// Configuration errors
	ErrMissingConfig      = errors.New("configuration not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Authentication errors
	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidState     = errors.New("invalid oauth state")
	ErrTimeout          = errors.New("timed out waiting for authorization")

	// Source errors
	ErrSourceUnavailable = errors.New("playlist source unavailable")

	// Aggregation errors
	ErrPlaylistFormat    = errors.New("playlist name must be \"<date> <title>\"")
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// Store errors
	ErrNoSnapshot = errors.New("no snapshot has been stored yet")

	// Input validation errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidFormat   = errors.New("unsupported output format")
)

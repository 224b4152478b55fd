package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthInvalid    = fmt.Errorf("refresh token rejected by provider")
	ErrAuthFailure    = fmt.Errorf("authorization failed, please reauthorize")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrStateMismatch  = fmt.Errorf("invalid state parameter")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrTransport      = fmt.Errorf("transport error")
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrInsertRejected = fmt.Errorf("failed to copy tracks to the new playlist")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

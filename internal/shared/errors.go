package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors. The only hard failures a single UPC check is
	// allowed to surface; every other remote failure degrades to an empty
	// result so one bad code cannot abort a batch.
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")

	// API and service errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrReleaseNotFound = fmt.Errorf("release not found")
	ErrNoReleaseDate   = fmt.Errorf("release has no sales start date")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrUnauthorized       = fmt.Errorf("credential rejected by backend")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrPrecondition       = fmt.Errorf("precondition violated")
	ErrCredentialNotFound = fmt.Errorf("no stored credential")
	ErrRefreshInProgress  = fmt.Errorf("refresh already in progress")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Transport and API errors
	ErrNetworkFailure     = fmt.Errorf("network failure")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrInvalidResponse    = fmt.Errorf("invalid API response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

package errors

import "errors"

// Sentinel errors mapped to HTTP status codes at the ports boundary.
// APIServerError also marks a missing fallback flag resource, which is a
// deployment configuration error rather than a normal miss.
var (
	APIServerError         = errors.New("Server error")
	APIClientError         = errors.New("Client error")
	RatelimitExceededError = errors.New("Ratelimit exceeded")
)

package gateway

import "fmt"

// APIError is returned when the server answers with a failure status.
// ProcessedData holds the structured error body with its keys converted to
// camelCase; it is nil when the body was absent or not valid JSON.
type APIError struct {
	StatusCode    int
	ProcessedData any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: server returned status %d", e.StatusCode)
}

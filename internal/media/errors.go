package media

import "fmt"

// AuthError reports a failed token acquisition. Callers see it when the
// configured client credentials are rejected by the login endpoint.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("media login failed (status %d): %s", e.StatusCode, e.Detail)
}

// APIError is a non-success response from the media management API, decoded
// from the remote error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("media api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 404
}

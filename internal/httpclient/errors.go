package httpclient

import "fmt"

// UpstreamError represents a non-success response from an upstream service.
// The raw body is preserved so callers can parse provider-specific error
// payloads.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

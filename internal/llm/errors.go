package llm

import (
	"errors"
	"fmt"

	"github.com/nulzo/llm-bridge/internal/httpclient"
)

// ErrEmptyCompletion marks an upstream response that carried no answer text.
var ErrEmptyCompletion = errors.New("upstream returned an empty completion")

// ProviderError wraps any upstream failure uniformly: the provider id, the
// upstream HTTP status when one was seen, and the original cause.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapUpstream normalizes err into a *ProviderError, lifting the status code
// out of an *httpclient.UpstreamError when one is in the chain. Errors that
// are already provider errors pass through untouched.
func WrapUpstream(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		return &ProviderError{Provider: provider, StatusCode: ue.StatusCode, Err: err}
	}
	return &ProviderError{Provider: provider, Err: err}
}

// UnsupportedError marks an operation the adapter cannot perform at all,
// kept distinct from upstream failures so callers can pick their own
// fallback policy.
type UnsupportedError struct {
	Provider string
	Op       string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Provider, e.Op)
}

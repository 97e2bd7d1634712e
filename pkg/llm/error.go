package llm

import "fmt"

// ProviderError is returned when the completion provider fails: transport
// errors, non-200 statuses, auth and rate-limit rejections, or an
// undecodable response body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

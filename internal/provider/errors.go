package provider

import "fmt"

// HTTPError is returned when a provider answers with a non-2xx status.
// The aggregator logs it and drops the provider's contribution; it never
// aborts sibling providers.
type HTTPError struct {
	Provider   string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API error: %s (%d)", e.Provider, e.Status, e.StatusCode)
}

package fetcher

import (
	"errors"
	"fmt"
)

var (
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")
	ErrBodyTooLarge       = errors.New("response body exceeds http.max_body_kb")
)

// FetchError reports every way a page can fail to arrive: transport error,
// non-2xx status, robots.txt refusal or exhausted retries.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

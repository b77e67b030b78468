package engine

import (
	"context"
	"fmt"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page for the given request. Implementations return
	// an error for transport failures and for non-2xx responses; a nil error
	// always comes with a complete body.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	// Body is the undecoded response body.
	Body []byte

	// ContentType is the response Content-Type header, used for charset detection.
	ContentType string

	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// maxBody caps how much of a response is read (10 MB).
const maxBody = 10 << 20

// ErrBodyTooLarge is returned when a page exceeds maxBody. The truncated
// document is never handed to the parser.
var ErrBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", maxBody)

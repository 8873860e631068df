package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection means the stream could not be opened; the loop never starts.
	ErrConnection = errors.New("cannot open video stream")
	// ErrInvalidCategory is returned for unknown detection categories.
	ErrInvalidCategory = errors.New("invalid object category")
	// ErrInvalidInterval is returned for negative detection intervals.
	ErrInvalidInterval = errors.New("invalid detection interval")
)

// PublishError reports a rejected or failed upload to the storage endpoint.
type PublishError struct {
	StatusCode int    // 0 when the request never got a response
	Body       string // Response body, truncated
	Err        error
}

func (e *PublishError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("publish failed with status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("publish failed with status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("publish failed: %v", e.Err)
	}
}

func (e *PublishError) Unwrap() error { return e.Err }

// EncodingError reports a frame that could not be annotated or compressed.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("encode frame: %v", e.Err) }

func (e *EncodingError) Unwrap() error { return e.Err }

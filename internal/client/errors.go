package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyText means the draft has no text after trimming.
	ErrEmptyText = errors.New("story text is empty")
	// ErrTextTooLong means the draft exceeds MaxStoryRunes.
	ErrTextTooLong = fmt.Errorf("story text exceeds %d characters", MaxStoryRunes)
	// ErrNameTooLong means the author name exceeds MaxNameRunes.
	ErrNameTooLong = fmt.Errorf("name exceeds %d characters", MaxNameRunes)
	// ErrCancelled is returned when the confirm callback declines.
	ErrCancelled = errors.New("submission cancelled")
)

// RateLimitError reports a 429 with the wait until the device may submit
// again.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ContentBlockedError means the story was rejected for severe content,
// either by the preview or by the server.
type ContentBlockedError struct {
	Message string
}

func (e *ContentBlockedError) Error() string {
	if e.Message == "" {
		return "content blocked"
	}
	return "content blocked: " + e.Message
}

// APIError is any other non-2xx answer.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

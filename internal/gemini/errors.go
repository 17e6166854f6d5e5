package gemini

import (
	"errors"
	"net/http"

	"google.golang.org/genai"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

type rateLimitError struct {
	err error
}

func (e *rateLimitError) Error() string     { return e.err.Error() }
func (e *rateLimitError) Unwrap() error     { return e.err }
func (e *rateLimitError) RateLimited() bool { return true }

func classify(err error) error {
	if err == nil {
		return nil
	}
	if isRateLimited(err) {
		return &rateLimitError{err: err}
	}
	return err
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == statusResourceExhausted
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == statusResourceExhausted
	}
	return false
}

package transport

import (
	"fmt"
	"net/http"
)

// StatusError is returned when the feedback API answers with an unexpected
// HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("feedback api: HTTP %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("feedback api: HTTP %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

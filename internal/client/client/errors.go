package client

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

// ChallengeError is returned for 401 responses. Nonce is the value the next
// signed request must use; it may be empty when the server sent none.
type ChallengeError struct {
	Nonce string
}

func (e *ChallengeError) Error() string {
	return "401 unauthorized"
}

func (e *ChallengeError) Unwrap() error {
	return common.ErrUnauthorized
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// Unwrap classifies the status as a network error. Server faults are
// common.ErrInternal as well.
func (e *StatusError) Unwrap() []error {
	if e.Code >= http.StatusInternalServerError {
		return []error{common.ErrNetwork, common.ErrInternal}
	}
	return []error{common.ErrNetwork}
}

package usecase

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrDeliverableNotFound = errors.New("deliverable not found")
	ErrProjectNotFound     = errors.New("project not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrRuleNotFound        = errors.New("automation rule not found")

	// Transition errors
	ErrStaleTransition = errors.New("deliverable was changed concurrently")

	// Token errors
	ErrTokenNotFound = errors.New("no deliverable awaits approval for this token")
	ErrInvalidLink   = errors.New("approval link is invalid or expired")

	// Access control errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrAccessDenied    = errors.New("access denied")

	// Other errors
	ErrValidation = errors.New("validation failed")
	ErrBackend    = errors.New("backend failure")
)

// Context keys for error values
const (
	DeliverableIDKey = "deliverable_id"
	ProjectIDKey     = "project_id"
	ProfileIDKey     = "profile_id"
	RuleIDKey        = "rule_id"
	UserIDKey        = "user_id"
	TokenKey         = "token"
)

// backendError marks err as a storage or gateway failure while keeping its chain
func backendError(err error, msg string, options ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrBackend, err), msg, options...)
}

// notFoundOrBackend maps a repository lookup error to sentinel when the record is
// missing and to ErrBackend otherwise
func notFoundOrBackend(err error, sentinel error, what string, options ...goerr.Option) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(sentinel, what+" not found", options...)
	}
	return backendError(err, "failed to load "+what, options...)
}

// validationError marks err as a caller mistake while keeping its chain
func validationError(err error, msg string, options ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrValidation, err), msg, options...)
}

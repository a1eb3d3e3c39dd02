package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		usecase.ErrDeliverableNotFound,
		usecase.ErrProjectNotFound,
		usecase.ErrProfileNotFound,
		usecase.ErrRuleNotFound,
		usecase.ErrStaleTransition,
		usecase.ErrTokenNotFound,
		usecase.ErrInvalidLink,
		usecase.ErrUnauthenticated,
		usecase.ErrAccessDenied,
		usecase.ErrValidation,
		usecase.ErrBackend,
	}

	for i, a := range sentinels {
		gt.Value(t, a).NotNil()
		for j, b := range sentinels {
			if i != j {
				gt.Bool(t, errors.Is(a, b)).False()
			}
		}
	}
}

func TestErrors_BackendErrorKeepsCause(t *testing.T) {
	err := usecase.BackendError(interfaces.ErrConflict, "failed to save")
	gt.Error(t, err).Is(usecase.ErrBackend)
	gt.Error(t, err).Is(interfaces.ErrConflict)
}

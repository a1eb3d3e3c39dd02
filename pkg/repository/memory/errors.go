package memory

import "github.com/nexaflow/nexaflow/pkg/domain/interfaces"

var (
	ErrNotFound = interfaces.ErrNotFound
	ErrConflict = interfaces.ErrConflict
)

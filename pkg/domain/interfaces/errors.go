package interfaces

import "github.com/m-mizutani/goerr/v2"

// Errors shared by every repository implementation
var (
	ErrNotFound = goerr.New("not found")
	// ErrConflict is returned when a compare-and-swap write loses against a concurrent write
	ErrConflict = goerr.New("conflicting write")
)

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyPopulated guards the single-population rule of a Registry.
	ErrAlreadyPopulated = errors.New("registry already populated")
	// ErrRetrieval is matched by every RetrievalError.
	ErrRetrieval = errors.New("retrieval failed")
)

// RetrievalError reports a failure of the land-registry source. It keeps
// "the query failed" distinct from "the query matched nothing".
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Is matches ErrRetrieval.
func (e *RetrievalError) Is(target error) bool {
	return target == ErrRetrieval
}

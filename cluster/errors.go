package cluster

import (
	"errors"
	"fmt"
)

// ErrNilStore is returned by New when no base store is supplied.
var ErrNilStore = errors.New("cluster: nil base store")

// ErrInvalidDistance indicates a negative distance threshold.
type ErrInvalidDistance struct {
	Distance float64
}

func (e *ErrInvalidDistance) Error() string {
	return fmt.Sprintf("cluster: invalid distance %v: must be >= 0", e.Distance)
}

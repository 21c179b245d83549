package grid

import (
	"errors"
	"fmt"
)

// ErrOverflow is matched by every OverflowError.
var ErrOverflow = errors.New("grid: value index overflow")

// OverflowError reports a scatter write past the end of the value buffer,
// which means the count pass and the scatter pass disagreed.
type OverflowError struct {
	Index    int
	Capacity int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("grid: value index (%d) must be less than values length (%d)", e.Index, e.Capacity)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

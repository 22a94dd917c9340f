package analysis

import "errors"

// ErrInvalidParams is returned when analysis parameters are out of range.
var ErrInvalidParams = errors.New("invalid analysis parameters")

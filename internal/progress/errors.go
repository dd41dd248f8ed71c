package progress

import "errors"

// ErrEmptyProgress indicates a structural misuse: an operation that needs a
// current step was called while the step list is empty.
var ErrEmptyProgress = errors.New("objective progress has no steps")

// ErrParentNotObjective indicates an attempt to attach a recovery step to a
// parent that is not objective-kind. Recovery-within-recovery is rejected.
var ErrParentNotObjective = errors.New("recovery parent must be an objective step")

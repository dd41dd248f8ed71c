package driver

import "errors"

// ErrIterationBudgetExceeded means the replan-iteration cap was hit,
// cutting off an oscillation between block-detection and re-planning
var ErrIterationBudgetExceeded = errors.New("replan iteration budget exceeded")

// ErrCancellationRequested means a run-scoped cancellation was observed
// between loop steps
var ErrCancellationRequested = errors.New("cancellation requested")

// ErrConnectivityExhausted means the device session could not be
// re-established within the reconnect retry budget
var ErrConnectivityExhausted = errors.New("device reconnect retries exhausted")

package oracle

import "context"

// Retrying decorates an Oracle so every call is retried once with the same
// inputs before the failure is surfaced. A second failure is fatal for the
// caller to handle.
type Retrying struct {
	Inner Oracle
}

// WithRetry wraps an oracle in the retry-once policy
func WithRetry(inner Oracle) *Retrying {
	return &Retrying{Inner: inner}
}

func (r *Retrying) AssessState(ctx context.Context, snapshot string, screen ScreenContext) (*Assessment, error) {
	a, err := r.Inner.AssessState(ctx, snapshot, screen)
	if err == nil || ctx.Err() != nil {
		return a, err
	}
	return r.Inner.AssessState(ctx, snapshot, screen)
}

func (r *Retrying) GeneratePlan(ctx context.Context, stepDescription string, screen ScreenContext) ([]string, error) {
	plan, err := r.Inner.GeneratePlan(ctx, stepDescription, screen)
	if err == nil || ctx.Err() != nil {
		return plan, err
	}
	return r.Inner.GeneratePlan(ctx, stepDescription, screen)
}

func (r *Retrying) ComposeResponse(ctx context.Context, snapshot string) (string, error) {
	msg, err := r.Inner.ComposeResponse(ctx, snapshot)
	if err == nil || ctx.Err() != nil {
		return msg, err
	}
	return r.Inner.ComposeResponse(ctx, snapshot)
}

// RetryingParser applies the same retry-once policy to goal parsing
type RetryingParser struct {
	Inner GoalParser
}

func (r *RetryingParser) ParseGoals(ctx context.Context, raw string) ([]string, error) {
	goals, err := r.Inner.ParseGoals(ctx, raw)
	if err == nil || ctx.Err() != nil {
		return goals, err
	}
	return r.Inner.ParseGoals(ctx, raw)
}

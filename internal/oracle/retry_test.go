package oracle

import (
	"context"
	"errors"
	"testing"
)

// flakyOracle fails a set number of calls before succeeding
type flakyOracle struct {
	failures int
	calls    int
}

func (f *flakyOracle) attempt() error {
	f.calls++
	if f.calls <= f.failures {
		return wrap("assess_state", errors.New("transient"))
	}
	return nil
}

func (f *flakyOracle) AssessState(ctx context.Context, snapshot string, screen ScreenContext) (*Assessment, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return &Assessment{}, nil
}

func (f *flakyOracle) GeneratePlan(ctx context.Context, stepDescription string, screen ScreenContext) ([]string, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return []string{"tap icon"}, nil
}

func (f *flakyOracle) ComposeResponse(ctx context.Context, snapshot string) (string, error) {
	if err := f.attempt(); err != nil {
		return "", err
	}
	return "ok", nil
}

func TestRetryingRecoversFromOneFailure(t *testing.T) {
	inner := &flakyOracle{failures: 1}
	r := WithRetry(inner)

	if _, err := r.AssessState(context.Background(), "", ScreenContext{}); err != nil {
		t.Errorf("AssessState() with one transient failure = %v, want success", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestRetryingGivesUpAfterSecondFailure(t *testing.T) {
	inner := &flakyOracle{failures: 2}
	r := WithRetry(inner)

	_, err := r.GeneratePlan(context.Background(), "open app", ScreenContext{})
	if err == nil {
		t.Fatal("GeneratePlan() succeeded despite two failures")
	}
	var oerr *Error
	if !errors.As(err, &oerr) {
		t.Errorf("GeneratePlan() error = %v, want *Error", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want exactly 2 (retry once, no more)", inner.calls)
	}
}

func TestRetryingHonorsDeadContext(t *testing.T) {
	inner := &flakyOracle{failures: 1}
	r := WithRetry(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ComposeResponse(ctx, ""); err == nil {
		t.Error("ComposeResponse() retried into success on a cancelled context")
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times on a cancelled context, want 1", inner.calls)
	}
}

type flakyParser struct {
	failures int
	calls    int
}

func (f *flakyParser) ParseGoals(ctx context.Context, raw string) ([]string, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, wrap("parse_goals", errors.New("transient"))
	}
	return []string{"open app"}, nil
}

func TestRetryingParser(t *testing.T) {
	inner := &flakyParser{failures: 1}
	r := &RetryingParser{Inner: inner}

	goals, err := r.ParseGoals(context.Background(), "open the app")
	if err != nil {
		t.Fatalf("ParseGoals() with one transient failure = %v, want success", err)
	}
	if len(goals) != 1 {
		t.Errorf("ParseGoals() returned %d goals, want 1", len(goals))
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

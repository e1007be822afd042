package changeset

import "context"

// fakeCapability is a scriptable capability.Capability for tests.
type fakeCapability struct {
	preflightAllowed bool
	preflightErr     error

	driftSequence []bool // consumed in order across calls; last value repeats once exhausted
	driftErr      error

	impact    string
	impactErr error

	toolErr error
}

func (f *fakeCapability) Preflight(ctx context.Context, mode string) (bool, error) {
	if f.preflightErr != nil {
		return false, f.preflightErr
	}
	return f.preflightAllowed, nil
}

func (f *fakeCapability) Drift(ctx context.Context, mode string) (bool, error) {
	if f.driftErr != nil {
		return false, f.driftErr
	}
	if len(f.driftSequence) == 0 {
		return false, nil
	}
	next := f.driftSequence[0]
	if len(f.driftSequence) > 1 {
		f.driftSequence = f.driftSequence[1:]
	}
	return next, nil
}

func (f *fakeCapability) GetDrift(ctx context.Context, excludePrefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeCapability) Impact(ctx context.Context, mode string, paths []string) (string, error) {
	if f.impactErr != nil {
		return "", f.impactErr
	}
	return f.impact, nil
}

func (f *fakeCapability) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	return "ok", nil
}

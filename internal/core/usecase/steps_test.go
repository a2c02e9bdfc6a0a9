package usecase

import (
	"context"
	"errors"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"testing"
)

func TestRunStepsPolicies(t *testing.T) {
	var ran []string
	mk := func(name string, policy domain.StepPolicy, err error) step {
		return step{name: name, target: name, policy: policy, run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	logger := contextkeys.LoggerFromContext(context.Background())

	report, err := runSteps(context.Background(), logger, []step{
		mk("a", domain.ContinueOnFailure, errBoom),
		mk("b", domain.ContinueOnFailure, nil),
		mk("c", domain.AbortOnFailure, errBoom),
		mk("d", domain.ContinueOnFailure, nil),
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if len(ran) != 3 || len(report.Results) != 3 {
		t.Fatalf("ran %v, results %+v", ran, report.Results)
	}
	if len(report.Failed()) != 2 || report.Results[1].Err != nil {
		t.Fatalf("report = %+v", report)
	}

	ran = nil
	report, err = runSteps(context.Background(), logger, []step{mk("x", domain.ContinueOnFailure, errBoom), mk("y", domain.AbortOnFailure, nil)})
	if err != nil || len(report.Results) != 2 {
		t.Fatalf("continue-only failure: %v %+v", err, report)
	}
}

func TestStateTrackerLoadingAndLastError(t *testing.T) {
	var s stateTracker
	s.begin()
	s.begin()
	s.end(errBoom)
	if loading, msg := s.snapshot(); !loading || msg != "boom" {
		t.Fatalf("after one end: %v %q", loading, msg)
	}
	s.end(nil)
	if loading, msg := s.snapshot(); loading || msg != "" {
		t.Fatalf("after both ends: %v %q", loading, msg)
	}
	s.end(nil)
	if loading, _ := s.snapshot(); loading {
		t.Fatal("unbalanced end made the tracker loading")
	}
}

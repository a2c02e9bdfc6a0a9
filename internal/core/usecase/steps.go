package usecase

import (
	"context"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
)

// step is one write in a multi-step operation.
type step struct {
	name   string
	target string
	policy domain.StepPolicy
	run    func(ctx context.Context) error
}

// runSteps executes steps in order. A failing ContinueOnFailure step is recorded
// and skipped over; a failing AbortOnFailure step ends the run and its error is returned.
func runSteps(ctx context.Context, logger port.LoggerPort, steps []step) (domain.StepReport, error) {
	report := domain.StepReport{Results: make([]domain.StepResult, 0, len(steps))}

	for _, s := range steps {
		err := s.run(ctx)
		report.Results = append(report.Results, domain.StepResult{
			Step:   s.name,
			Target: s.target,
			Policy: s.policy,
			Err:    err,
		})
		if err == nil {
			logger.Debug("Step succeeded", port.Fields{"step": s.name, "target": s.target})
			continue
		}

		if s.policy == domain.AbortOnFailure {
			logger.Error("Step failed, aborting", err, port.Fields{"step": s.name, "target": s.target})
			return report, err
		}
		logger.Warn("Step failed, continuing", port.Fields{"step": s.name, "target": s.target, "error": err.Error()})
	}

	return report, nil
}

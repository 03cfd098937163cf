package jobs

import (
	"context"
	"time"

	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
)

// StepResult reports one pipeline step.
type StepResult struct {
	Job      string        `json:"job" yaml:"job"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Report   any           `json:"report,omitempty" yaml:"report,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// PipelineResult reports a pipeline run.
type PipelineResult struct {
	Steps    []StepResult  `json:"steps" yaml:"steps"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Completed is false when a step failed or the run was cancelled.
	Completed bool `json:"completed" yaml:"completed"`
}

// Pipeline runs names in order, or the configured pipeline when names is
// empty. It stops at the first failing step and returns a *errors.JobError
// naming it along with the steps run so far.
func (r *Runner) Pipeline(ctx context.Context, names []string) (*PipelineResult, error) {
	if len(names) == 0 {
		names = r.cfg.Pipeline
	}
	for _, name := range names {
		if _, ok := registry[name]; !ok {
			return nil, errors.NewValidationError("pipeline", name, "unknown job")
		}
	}

	logger := logging.Ctx(ctx)
	start := time.Now()
	result := &PipelineResult{}
	defer func() { result.Duration = elapsed(start) }()

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return result, &errors.JobError{Job: name, Err: err}
		}
		logger.Info().Int("step", i+1).Int("of", len(names)).Str("job", name).Msg("Starting job")

		stepStart := time.Now()
		report, err := r.Run(ctx, name)
		step := StepResult{Job: name, Duration: elapsed(stepStart), Report: report}
		if err != nil {
			step.Error = err.Error()
			result.Steps = append(result.Steps, step)
			logger.Error().Err(err).Str("job", name).Msg("Job failed, stopping pipeline")
			return result, &errors.JobError{Job: name, Err: err}
		}
		result.Steps = append(result.Steps, step)
		logger.Info().Str("job", name).Dur("duration", step.Duration).Msg("Job finished")
	}

	result.Completed = true
	return result, nil
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}

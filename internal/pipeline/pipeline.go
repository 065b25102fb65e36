package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/claimbot/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the run state
// accumulated by previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails; whether that error stops the
	// pipeline depends on NonCritical.
	Do(ctx context.Context, run *model.CredentialRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// NonCritical is implemented by steps whose failure is logged and recorded
// but never aborts the pipeline.
type NonCritical interface {
	NonCritical() bool
}

// isCritical reports whether a failure of step must stop the pipeline.
func isCritical(step Step) bool {
	nc, ok := step.(NonCritical)
	return !ok || !nc.NonCritical()
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step; steps handle it themselves
// while running.
//
// Returns the error of the first failed critical step, or nil when every
// critical step succeeded. Non-critical failures are recorded in run.Errors.
func (p *Pipeline) Execute(ctx context.Context, run *model.CredentialRun) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"credential", run.Label(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"credential", run.Label(),
		)

		if err := step.Do(ctx, run); err != nil {
			if isCritical(step) {
				p.logger.Error("step failed",
					"step", step.Name(),
					"credential", run.Label(),
					"error", err,
				)
				return err
			}

			p.logger.Warn("step failed",
				"step", step.Name(),
				"credential", run.Label(),
				"error", err,
			)
			run.AddError(step.Name(), err)
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"credential", run.Label(),
			)
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

package provisioning

import (
	"context"
	"log/slog"
	"time"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// Stage is one step of a pipeline. Enabled gates the stage on the session
// built so far; a nil Enabled means the stage always runs.
type Stage struct {
	Name    string
	Enabled func(Session) bool
	Run     func(ctx context.Context, s Session) (Session, error)
}

// Pipeline runs stages in order and stops at the first failure. There is no
// rollback: files written by earlier stages stay on disk.
type Pipeline struct {
	stages []Stage
	log    *slog.Logger
}

func NewPipeline(log *slog.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{stages: stages, log: log}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name
	}
	return names
}

// Run threads s through every enabled stage. On failure it returns the last
// good session together with a *interfaces.StageError.
func (p *Pipeline) Run(ctx context.Context, s Session) (Session, error) {
	for _, stage := range p.stages {
		if stage.Enabled != nil && !stage.Enabled(s) {
			p.log.Debug("Skipping stage", slog.String("stage", stage.Name))
			continue
		}

		start := time.Now()
		p.log.Info("Running stage", slog.String("stage", stage.Name))

		next, err := stage.Run(ctx, s)
		if err != nil {
			stageErr := &interfaces.StageError{Stage: stage.Name, Err: err}
			p.log.Error("Stage failed",
				slog.String("stage", stage.Name),
				slog.String("resource", stageErr.Resource()),
				"err", err)
			return s, stageErr
		}

		s = next.markExecuted(stage.Name)
		p.log.Info("Stage complete",
			slog.String("stage", stage.Name),
			slog.Duration("duration", time.Since(start)))
	}
	return s, nil
}

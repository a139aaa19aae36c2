package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finboard/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type NewsRunner interface {
	RunNow(ctx context.Context) (domain.PipelineRunResult, error)
}

// NewsJob runs the news pipeline on a cron schedule. A tick that finds a run
// already in progress is skipped.
type NewsJob struct {
	tracer  trace.Tracer
	runner  NewsRunner
	spec    string
	timeout time.Duration
}

func NewNewsJob(tracer trace.Tracer, runner NewsRunner, spec string, timeout time.Duration) *NewsJob {
	if spec == "" {
		spec = "@every 30m"
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &NewsJob{tracer: tracer, runner: runner, spec: spec, timeout: timeout}
}

// Start schedules the job and blocks until ctx is cancelled, then waits for
// an in-flight tick to return.
func (j *NewsJob) Start(ctx context.Context) error {
	if j.runner == nil {
		log.Warn().Msg("News job disabled: no runner")
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() { j.runOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule news job %q: %w", j.spec, err)
	}
	c.Start()
	log.Info().Str("schedule", j.spec).Msg("News job scheduled")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("News job stopped")
	return nil
}

func (j *NewsJob) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := j.tracer.Start(ctx, "news-job.run-once")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	result, err := j.runner.RunNow(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		log.Info().Msg("news run already in progress, skipping scheduled run")
		return
	}
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	if err != nil {
		log.Error().Err(err).Msg("scheduled news run failed")
		return
	}
	log.Info().
		Str("outcome", string(result.Outcome)).
		Int("processed", result.ProcessedCount).
		Int("errors", result.ErrorCount).
		Int("skipped", result.SkippedCount).
		Dur("duration", result.Duration).
		Msg("scheduled news run complete")
}

// Package rotation runs the secret rotation sweeps of every registered document
// family, once or on a schedule.
package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/metrics"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// Target selects which secret a sweep moves documents onto.
type Target string

const (
	TargetEncryption Target = "encryption"
	TargetHash       Target = "hash"
)

// ParseTargets maps the CLI value "encryption", "hash" or "all" to targets.
func ParseTargets(value string) ([]Target, error) {
	switch value {
	case string(TargetEncryption):
		return []Target{TargetEncryption}, nil
	case string(TargetHash):
		return []Target{TargetHash}, nil
	case "all", "":
		return []Target{TargetEncryption, TargetHash}, nil
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown rotation target %q", value))
	}
}

// SweepFunc rotates one document family.
type SweepFunc func(ctx context.Context) (sensitive.RotationReport, error)

// Sweep is one registered rotation.
type Sweep struct {
	Document string
	Target   Target
	Run      SweepFunc
}

// Result is the outcome of one sweep.
type Result struct {
	Document string
	Target   Target
	Report   sensitive.RotationReport
	Err      error
}

// Runner executes sweeps sequentially.
type Runner struct {
	sweeps  []Sweep
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewRunner creates a Runner over sweeps.
func NewRunner(logger *slog.Logger, m metrics.BusinessMetrics, sweeps ...Sweep) *Runner {
	return &Runner{
		sweeps:  sweeps,
		metrics: m,
		logger:  logger,
	}
}

// Run executes every sweep whose target is in targets, in registration order. A
// failing sweep does not stop the others; the returned error joins all failures.
// Cancelling ctx stops before the next sweep and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, targets ...Target) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)

	for _, sweep := range r.sweeps {
		if !wanted(sweep.Target, targets) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		report, err := sweep.Run(ctx)
		r.record(ctx, sweep, report)

		results = append(results, Result{
			Document: sweep.Document,
			Target:   sweep.Target,
			Report:   report,
			Err:      err,
		})

		attrs := []slog.Attr{
			slog.String("document", sweep.Document),
			slog.String("target", string(sweep.Target)),
			slog.Int("visited", report.Visited),
			slog.Int("rotated", report.Rotated),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed),
			slog.Duration("duration", time.Since(start)),
		}

		switch {
		case apperrors.Is(err, context.Canceled), apperrors.Is(err, context.DeadlineExceeded):
			r.logger.LogAttrs(ctx, slog.LevelWarn, "rotation sweep cancelled", attrs...)
			return results, err
		case err != nil:
			attrs = append(attrs, slog.Any("error", err))
			r.logger.LogAttrs(ctx, slog.LevelError, "rotation sweep incomplete", attrs...)
			errs = append(errs, fmt.Errorf("%s %s rotation: %w", sweep.Document, sweep.Target, err))
		default:
			r.logger.LogAttrs(ctx, slog.LevelInfo, "rotation sweep completed", attrs...)
		}
	}

	return results, apperrors.Join(errs...)
}

func (r *Runner) record(ctx context.Context, sweep Sweep, report sensitive.RotationReport) {
	target := string(sweep.Target)
	r.metrics.RecordRotation(ctx, sweep.Document, target, "visited", int64(report.Visited))
	r.metrics.RecordRotation(ctx, sweep.Document, target, "rotated", int64(report.Rotated))
	r.metrics.RecordRotation(ctx, sweep.Document, target, "skipped", int64(report.Skipped))
	r.metrics.RecordRotation(ctx, sweep.Document, target, "failed", int64(report.Failed))
}

func wanted(target Target, targets []Target) bool {
	if len(targets) == 0 {
		return true
	}
	return slices.Contains(targets, target)
}

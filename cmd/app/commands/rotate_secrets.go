package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/antistereov/singularity-core-sub003/internal/rotation"
)

// Rotator runs rotation sweeps once.
type Rotator interface {
	Run(ctx context.Context, targets ...rotation.Target) ([]rotation.Result, error)
}

type sweepOutput struct {
	Document string `json:"document"`
	Target   string `json:"target"`
	Visited  int    `json:"visited"`
	Rotated  int    `json:"rotated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
}

// RunRotateSecrets moves every stored document onto the current encryption secret,
// the current hash secret, or both, and prints one line per sweep. The sweeps run
// to completion even when some documents fail; the error then reports the failures.
func RunRotateSecrets(
	ctx context.Context,
	rotator Rotator,
	logger *slog.Logger,
	out io.Writer,
	target, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	targets, err := rotation.ParseTargets(target)
	if err != nil {
		return err
	}

	logger.Info("rotating secrets", slog.String("target", target))

	results, runErr := rotator.Run(ctx, targets...)

	outputs := make([]sweepOutput, 0, len(results))
	for _, r := range results {
		o := sweepOutput{
			Document: r.Document,
			Target:   string(r.Target),
			Visited:  r.Report.Visited,
			Rotated:  r.Report.Rotated,
			Skipped:  r.Report.Skipped,
			Failed:   r.Report.Failed,
		}
		if r.Err != nil {
			o.Error = "incomplete"
		}
		outputs = append(outputs, o)
	}

	if format == "json" {
		if err := writeJSON(out, outputs); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		for _, o := range outputs {
			_, _ = fmt.Fprintf(out, "%s/%s: visited=%d rotated=%d skipped=%d failed=%d\n",
				o.Document, o.Target, o.Visited, o.Rotated, o.Skipped, o.Failed)
		}
	}

	if runErr != nil {
		return fmt.Errorf("rotation incomplete: %w", runErr)
	}
	return nil
}

package sensitive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RotationReport counts the outcome of one sweep.
type RotationReport struct {
	Visited int // Documents read from the store
	Rotated int // Documents re-encrypted and written back
	Skipped int // Documents already current, or changed while the sweep ran
	Failed  int // Documents that could not be rotated
}

// RotateSecret re-encrypts every document whose envelope references a secret other
// than the current encryption secret. Documents are processed one at a time in store
// order and written back under the same id; those already current cause no write.
// The write only lands if the stored document is still the one the sweep read, so a
// save that happened after the read is never reverted; such documents count as
// skipped and are picked up by the next sweep if still stale.
//
// A failure on one document is logged with its id, counted, and the sweep moves on;
// the returned error then wraps ErrRotationIncomplete and every per-document failure.
// Cancelling ctx stops the sweep and returns ctx.Err(). Rotated documents stay rotated.
func (e *Engine[S, D, E]) RotateSecret(ctx context.Context) (RotationReport, error) {
	current, err := e.encryption.CurrentSecretKey(ctx)
	if err != nil {
		return RotationReport{}, fmt.Errorf("%w: %w", ErrEncryptDocument, err)
	}

	return e.sweep(ctx, "secret", current, func(doc E) string {
		return e.conv.EncryptedSensitive(doc).SecretKey
	})
}

// RotateHashSecret recomputes searchable hashes of every document whose hashes were
// derived from a hash secret other than the current one. It follows the same failure
// policy as RotateSecret. The envelope is re-sealed under the current encryption
// secret as a side effect.
func (e *Engine[S, D, E]) RotateHashSecret(ctx context.Context) (RotationReport, error) {
	keyed, ok := e.conv.(HashKeyed[E])
	if !ok || e.opts.hashes == nil {
		return RotationReport{}, ErrHashRotationUnsupported
	}

	current, err := e.opts.hashes.CurrentSecretKey(ctx)
	if err != nil {
		return RotationReport{}, fmt.Errorf("%w: %w", ErrEncryptDocument, err)
	}

	return e.sweep(ctx, "hash secret", current, keyed.HashSecretKey)
}

func (e *Engine[S, D, E]) sweep(
	ctx context.Context,
	target, current string,
	keyOf func(E) string,
) (RotationReport, error) {
	var (
		report   RotationReport
		failures []error
	)

	for doc, err := range e.store.Stream(ctx) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		if err != nil {
			return report, e.storeError(err)
		}

		report.Visited++
		id := e.conv.DocumentID(doc)

		if keyOf(doc) == current {
			report.Skipped++
			e.opts.logger.Debug("document already uses current "+target,
				slog.String("document", e.name),
				slog.String("id", id.String()))
			continue
		}

		if err := e.opts.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			return report, err
		}

		replaced, err := e.rotateOne(ctx, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failed++
			e.opts.logger.Error("failed to rotate "+target,
				slog.String("document", e.name),
				slog.String("id", id.String()),
				slog.Any("error", err))
			failures = append(failures, fmt.Errorf("document %s: %w", id, err))
			continue
		}
		if !replaced {
			report.Skipped++
			e.opts.logger.Info("document changed during "+target+" rotation",
				slog.String("document", e.name),
				slog.String("id", id.String()))
			continue
		}

		report.Rotated++
		e.opts.logger.Debug("rotated "+target,
			slog.String("document", e.name),
			slog.String("id", id.String()))
	}

	if len(failures) > 0 {
		return report, errors.Join(append([]error{ErrRotationIncomplete}, failures...)...)
	}
	return report, nil
}

func (e *Engine[S, D, E]) rotateOne(ctx context.Context, doc E) (bool, error) {
	decrypted, err := e.Decrypt(ctx, doc)
	if err != nil {
		return false, err
	}

	encrypted, err := e.Encrypt(ctx, decrypted)
	if err != nil {
		return false, err
	}

	replaced, err := e.store.ReplaceIfUnchanged(ctx, doc, encrypted)
	if err != nil {
		return false, e.storeError(err)
	}
	return replaced, nil
}

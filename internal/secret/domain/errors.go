package domain

import (
	"github.com/antistereov/singularity-core-sub003/internal/errors"
)

// Secret lookup errors. Both are distinguishable from one another so callers can tell
// an unknown identifier apart from a store that cannot serve requests.
var (
	// ErrSecretNotFound indicates no secret with the requested identifier exists in the category.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrSecretUnavailable indicates the category has no usable current secret or the
	// backing store could not be reached.
	ErrSecretUnavailable = errors.Wrap(errors.ErrInternal, "secret unavailable")
)

// Secret loading errors.
var (
	ErrSecretsNotSet         = errors.Wrap(errors.ErrInvalidInput, "secrets not set")
	ErrActiveSecretIDNotSet  = errors.Wrap(errors.ErrInvalidInput, "active secret id not set")
	ErrInvalidSecretsFormat  = errors.Wrap(errors.ErrInvalidInput, "invalid secrets format")
	ErrInvalidSecretBase64   = errors.Wrap(errors.ErrInvalidInput, "invalid secret base64")
	ErrActiveSecretNotFound  = errors.Wrap(errors.ErrInvalidInput, "active secret not found")
	ErrDuplicateSecretID     = errors.Wrap(errors.ErrConflict, "duplicate secret id")
	ErrAlgorithmNotAllowed   = errors.Wrap(errors.ErrInvalidInput, "algorithm not allowed for category")
	ErrUnknownSecretCategory = errors.Wrap(errors.ErrInvalidInput, "unknown secret category")
)

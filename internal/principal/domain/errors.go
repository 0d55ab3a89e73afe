package domain

import (
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
)

// Principal errors.
var (
	// ErrPrincipalNotFound indicates no principal exists with the requested id.
	ErrPrincipalNotFound = apperrors.Wrap(apperrors.ErrNotFound, "principal not found")

	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = apperrors.Wrap(apperrors.ErrNotFound, "user not found")

	// ErrGuestNotFound indicates no guest matches the lookup.
	ErrGuestNotFound = apperrors.Wrap(apperrors.ErrNotFound, "guest not found")

	// ErrEmailAlreadyExists indicates another user owns the email hash.
	ErrEmailAlreadyExists = apperrors.Wrap(apperrors.ErrConflict, "email already exists")

	// ErrKindConflict indicates the id is already stored as the other principal kind.
	ErrKindConflict = apperrors.Wrap(apperrors.ErrConflict, "principal id belongs to another kind")

	// ErrUnknownKind indicates a stored row carries an unrecognized kind.
	ErrUnknownKind = apperrors.Wrap(apperrors.ErrInternal, "unknown principal kind")
)

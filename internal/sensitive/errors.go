package sensitive

import (
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
)

// Engine errors. Each wraps one of the application base errors, and the
// underlying cause (encryption kind, store failure) stays reachable with errors.Is.
var (
	// ErrDocumentNotFound indicates no document exists with the requested id.
	ErrDocumentNotFound = apperrors.Wrap(apperrors.ErrNotFound, "document not found")

	// ErrEncryptDocument indicates a decrypted document could not be sealed.
	ErrEncryptDocument = apperrors.Wrap(apperrors.ErrInternal, "failed to encrypt document")

	// ErrDecryptDocument indicates a stored document could not be opened.
	ErrDecryptDocument = apperrors.Wrap(apperrors.ErrInternal, "failed to decrypt document")

	// ErrStore indicates the document store failed.
	ErrStore = apperrors.Wrap(apperrors.ErrDatabase, "document store failure")

	// ErrInvalidPageable indicates a page request outside the allowed bounds.
	ErrInvalidPageable = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid page request")

	// ErrInvalidCriteria indicates a filter on a field or operator the store does not index.
	ErrInvalidCriteria = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid criteria")

	// ErrRotationIncomplete indicates at least one document failed to rotate.
	ErrRotationIncomplete = apperrors.Wrap(apperrors.ErrInternal, "rotation incomplete")

	// ErrHashRotationUnsupported indicates the engine has no hash key accessor or hash service.
	ErrHashRotationUnsupported = apperrors.Wrap(apperrors.ErrInternal, "hash rotation not supported")
)

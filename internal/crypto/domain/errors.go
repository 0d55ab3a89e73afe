package domain

import (
	"fmt"

	"github.com/antistereov/singularity-core-sub003/internal/errors"
)

// Encryption error kinds. None of them is retryable without operator intervention.
var (
	// ErrObjectMapping indicates the payload could not be serialized or deserialized.
	ErrObjectMapping = errors.Wrap(errors.ErrInternal, "object mapping failed")

	// ErrSecret indicates the secret needed for the operation is unavailable.
	// On decrypt this means the referenced secret is gone: treat it as data loss.
	ErrSecret = errors.Wrap(errors.ErrInternal, "secret unavailable")

	// ErrCipher indicates malformed key material or a failed cipher operation,
	// including authentication failures on tampered ciphertext.
	ErrCipher = errors.Wrap(errors.ErrInternal, "cipher failure")

	// ErrEncoding indicates binary-to-text encoding or decoding failed.
	ErrEncoding = errors.Wrap(errors.ErrInternal, "encoding failure")
)

// Cipher construction errors.
var (
	// ErrUnsupportedAlgorithm indicates the secret declares an algorithm that cannot encrypt.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the key length does not match the algorithm.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates the ciphertext could not be opened.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)

// EncryptionError carries the kind of an encryption failure and the operation it
// happened in. Its message never includes key material, ciphertext or secret keys.
type EncryptionError struct {
	// Kind is one of ErrObjectMapping, ErrSecret, ErrCipher or ErrEncoding.
	Kind error
	// Op is "wrap", "unwrap", "seal" or "open".
	Op  string
	Err error
}

// NewEncryptionError builds an EncryptionError.
func NewEncryptionError(kind error, op string, err error) *EncryptionError {
	return &EncryptionError{Kind: kind, Op: op, Err: err}
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *EncryptionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Package domain defines the envelope types and error taxonomy of the encryption layer.
//
// An envelope pairs a ciphertext with the identifier of the secret needed to open it.
// The ciphertext is base64 text so envelopes can be stored in any document column.
package domain

// Envelope is the untyped storage form of an encrypted value.
type Envelope struct {
	SecretKey  string `json:"secretKey"`
	Ciphertext string `json:"ciphertext"`
}

// IsZero reports whether the envelope is empty.
func (e Envelope) IsZero() bool {
	return e.SecretKey == "" && e.Ciphertext == ""
}

// Encrypted is an envelope tagged with the type of the value it holds.
// T is never serialized; it only keeps Wrap and Unwrap honest at compile time.
type Encrypted[T any] struct {
	SecretKey  string `json:"secretKey"`
	Ciphertext string `json:"ciphertext"`
}

// Envelope drops the type tag.
func (e Encrypted[T]) Envelope() Envelope {
	return Envelope{SecretKey: e.SecretKey, Ciphertext: e.Ciphertext}
}

// EncryptedFrom re-attaches a type tag to a stored envelope.
func EncryptedFrom[T any](env Envelope) Encrypted[T] {
	return Encrypted[T]{SecretKey: env.SecretKey, Ciphertext: env.Ciphertext}
}

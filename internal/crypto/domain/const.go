package domain

// Algorithm names the primitive a secret is meant to be used with.
//
// Encryption secrets use one of the cipher algorithms; hash secrets use HMACSHA256.
// The algorithm travels with the secret, so switching primitives is a rotation:
// new writes follow the current secret while old envelopes keep decrypting with
// the algorithm of the secret they reference.
type Algorithm string

const (
	// AESGCM is AES-256-GCM with a random 12-byte nonce prepended to the ciphertext.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305 with a random 12-byte nonce prepended to the ciphertext.
	ChaCha20 Algorithm = "chacha20-poly1305"

	// AESSIV is deterministic authenticated encryption (RFC 5297) with a 64-byte key.
	// Identical plaintexts under the same key produce identical ciphertexts.
	AESSIV Algorithm = "aes-siv"

	// AESECB is the legacy deterministic AES/ECB/PKCS#7 format. It leaks plaintext
	// block patterns and carries no integrity tag. Supported so that documents written
	// in this format stay readable until a rotation moves them to a current secret.
	AESECB Algorithm = "aes-ecb"

	// HMACSHA256 marks a secret used for searchable keyed hashes.
	HMACSHA256 Algorithm = "hmac-sha256"
)

// IsCipher reports whether the algorithm can be used for envelope encryption.
func (a Algorithm) IsCipher() bool {
	switch a {
	case AESGCM, ChaCha20, AESSIV, AESECB:
		return true
	default:
		return false
	}
}

// Deterministic reports whether equal plaintexts encrypt to equal ciphertexts.
func (a Algorithm) Deterministic() bool {
	return a == AESSIV || a == AESECB
}

// ValidKeySize reports whether n bytes of key material fit the algorithm.
func (a Algorithm) ValidKeySize(n int) bool {
	switch a {
	case AESGCM, ChaCha20:
		return n == 32
	case AESSIV:
		return n == 64
	case AESECB:
		return n == 16 || n == 24 || n == 32
	case HMACSHA256:
		return n >= 32
	default:
		return false
	}
}

// KeySize returns the key length generated for new secrets of this algorithm.
func (a Algorithm) KeySize() int {
	if a == AESSIV {
		return 64
	}
	return 32
}

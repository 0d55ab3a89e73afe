package service

import (
	"fmt"

	"github.com/google/tink/go/daead/subtle"
)

// AESSIVCipher implements Cipher with deterministic authenticated encryption
// (AES-SIV, RFC 5297). Equal plaintexts under the same key and AAD give equal
// ciphertexts, but tampering is detected, unlike the legacy ECB format.
type AESSIVCipher struct {
	siv *subtle.AESSIV
}

// NewAESSIV creates an AES-SIV cipher. The key must be 64 bytes.
func NewAESSIV(key []byte) (*AESSIVCipher, error) {
	siv, err := subtle.NewAESSIV(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES-SIV cipher: %w", err)
	}
	return &AESSIVCipher{siv: siv}, nil
}

func (c *AESSIVCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	ciphertext, err = c.siv.EncryptDeterministically(plaintext, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return ciphertext, nil, nil
}

func (c *AESSIVCipher) Decrypt(ciphertext, _, aad []byte) ([]byte, error) {
	plaintext, err := c.siv.DecryptDeterministically(ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func (c *AESSIVCipher) NonceSize() int {
	return 0
}

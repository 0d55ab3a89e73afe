package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// AESECBCipher implements the legacy AES/ECB/PKCS#7 format.
//
// ECB encrypts each block independently, so repeated plaintext blocks are visible
// in the ciphertext and nothing authenticates it. Only existing data should be
// stored under it; AAD is not supported and is ignored.
type AESECBCipher struct {
	block cipher.Block
}

// NewAESECB creates a legacy ECB cipher. Keys may be 16, 24 or 32 bytes.
func NewAESECB(key []byte) (*AESECBCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &AESECBCipher{block: block}, nil
}

func (c *AESECBCipher) Encrypt(plaintext, _ []byte) (ciphertext, nonce []byte, err error) {
	size := c.block.BlockSize()
	padding := size - len(plaintext)%size
	padded := make([]byte, len(plaintext)+padding)
	copy(padded, plaintext)
	copy(padded[len(plaintext):], bytes.Repeat([]byte{byte(padding)}, padding))

	ciphertext = make([]byte, len(padded))
	for i := 0; i < len(padded); i += size {
		c.block.Encrypt(ciphertext[i:i+size], padded[i:i+size])
	}
	return ciphertext, nil, nil
}

func (c *AESECBCipher) Decrypt(ciphertext, _, _ []byte) ([]byte, error) {
	size := c.block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, errors.New("failed to decrypt: ciphertext is not a multiple of the block size")
	}

	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += size {
		c.block.Decrypt(plaintext[i:i+size], ciphertext[i:i+size])
	}

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > size {
		return nil, errors.New("failed to decrypt: invalid padding")
	}
	for _, b := range plaintext[len(plaintext)-padding:] {
		if int(b) != padding {
			return nil, errors.New("failed to decrypt: invalid padding")
		}
	}
	return plaintext[:len(plaintext)-padding], nil
}

func (c *AESECBCipher) NonceSize() int {
	return 0
}

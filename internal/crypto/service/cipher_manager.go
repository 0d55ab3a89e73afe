package service

import (
	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
)

// CipherManagerService implements CipherManager for every supported algorithm.
type CipherManagerService struct{}

// NewCipherManager creates a new CipherManagerService.
func NewCipherManager() *CipherManagerService {
	return &CipherManagerService{}
}

// CreateCipher returns ErrInvalidKeySize if the key does not fit the algorithm or
// ErrUnsupportedAlgorithm if the algorithm cannot encrypt.
func (cm *CipherManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (Cipher, error) {
	if !alg.IsCipher() {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	if !alg.ValidKeySize(len(key)) {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	case cryptoDomain.AESSIV:
		return NewAESSIV(key)
	case cryptoDomain.AESECB:
		return NewAESECB(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}

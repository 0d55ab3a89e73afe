// Package domain defines the principal documents (users and guests) that share one
// encrypted document family discriminated by Kind.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
)

// Kind discriminates principal variants in storage.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Metadata holds the plaintext fields shared by every principal.
type Metadata struct {
	ID         uuid.UUID
	Roles      []string
	Groups     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastActive time.Time
}

// HasRole reports whether role is assigned.
func (m Metadata) HasRole(role string) bool {
	return slices.Contains(m.Roles, role)
}

// Principal is either a *User or a *Guest.
type Principal interface {
	Kind() Kind
	PrincipalMetadata() Metadata
}

// SecurityDetails are account protection settings kept inside the envelope.
type SecurityDetails struct {
	EmailVerified    bool     `json:"emailVerified"`
	TwoFactorEnabled bool     `json:"twoFactorEnabled"`
	TwoFactorSecret  string   `json:"twoFactorSecret,omitempty"`
	RecoveryCodes    []string `json:"recoveryCodes,omitempty"` // Password-hashed
}

// UserSensitiveData is the encrypted payload of a user.
type UserSensitiveData struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Password   string            `json:"password,omitempty"` // go-pwdhash encoded
	Identities map[string]string `json:"identities,omitempty"` // Provider to external id
	Security   SecurityDetails   `json:"security"`
}

// User is the decrypted user document.
type User struct {
	Metadata
	Sensitive UserSensitiveData
}

func (u *User) Kind() Kind                  { return KindUser }
func (u *User) PrincipalMetadata() Metadata { return u.Metadata }

// GuestSensitiveData is the encrypted payload of a guest.
type GuestSensitiveData struct {
	Name string `json:"name"`
}

// Guest is the decrypted guest document.
type Guest struct {
	Metadata
	Sensitive GuestSensitiveData
}

func (g *Guest) Kind() Kind                  { return KindGuest }
func (g *Guest) PrincipalMetadata() Metadata { return g.Metadata }

// EncryptedPrincipal is the storage form of every principal kind.
//
// EmailHash and IdentityHashes are HMAC-SHA256 values computed with the hash
// secret named by HashSecretKey. Guests have neither.
type EncryptedPrincipal struct {
	Metadata
	Kind           Kind
	EmailHash      *string
	IdentityHashes []string
	HashSecretKey  string
	Sensitive      cryptoDomain.Envelope
}

// NormalizeEmail trims and lowercases an address before hashing or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityKey is the plaintext hashed for an external identity lookup.
func IdentityKey(provider, externalID string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + ":" + externalID
}

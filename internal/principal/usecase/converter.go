package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

type (
	// UserEngine is the CRUD engine for users.
	UserEngine = sensitive.Engine[domain.UserSensitiveData, domain.User, domain.EncryptedPrincipal]
	// GuestEngine is the CRUD engine for guests.
	GuestEngine = sensitive.Engine[domain.GuestSensitiveData, domain.Guest, domain.EncryptedPrincipal]
)

// NewUserEngine creates the user engine. repo must be scoped to users.
func NewUserEngine(
	repo PrincipalRepository,
	encryption cryptoService.EncryptionService,
	hashes cryptoService.HashService,
	opts ...sensitive.Option,
) *UserEngine {
	opts = append(opts, sensitive.WithHashService(hashes))
	return sensitive.NewEngine(
		string(domain.KindUser),
		sensitive.Store[domain.EncryptedPrincipal](repo),
		sensitive.Converter[domain.UserSensitiveData, domain.User, domain.EncryptedPrincipal](
			userConverter{hashes: hashes},
		),
		encryption,
		opts...,
	)
}

// NewGuestEngine creates the guest engine. repo must be scoped to guests.
func NewGuestEngine(
	repo PrincipalRepository,
	encryption cryptoService.EncryptionService,
	opts ...sensitive.Option,
) *GuestEngine {
	return sensitive.NewEngine(
		string(domain.KindGuest),
		sensitive.Store[domain.EncryptedPrincipal](repo),
		sensitive.Converter[domain.GuestSensitiveData, domain.Guest, domain.EncryptedPrincipal](guestConverter{}),
		encryption,
		opts...,
	)
}

// userConverter derives the email and identity hashes from the decrypted payload
// under one hash secret snapshot.
type userConverter struct {
	hashes cryptoService.HashService
}

func (userConverter) Sensitive(u domain.User) domain.UserSensitiveData {
	return u.Sensitive
}

func (userConverter) EncryptedSensitive(p domain.EncryptedPrincipal) cryptoDomain.Encrypted[domain.UserSensitiveData] {
	return cryptoDomain.EncryptedFrom[domain.UserSensitiveData](p.Sensitive)
}

func (userConverter) DocumentID(p domain.EncryptedPrincipal) uuid.UUID {
	return p.ID
}

func (userConverter) HashSecretKey(p domain.EncryptedPrincipal) string {
	return p.HashSecretKey
}

func (c userConverter) DoEncrypt(
	ctx context.Context,
	u domain.User,
	sealed cryptoDomain.Encrypted[domain.UserSensitiveData],
) (domain.EncryptedPrincipal, error) {
	hasher, err := c.hashes.CurrentHasher(ctx)
	if err != nil {
		return domain.EncryptedPrincipal{}, err
	}
	defer hasher.Close()

	emailHash := hasher.Hash(domain.NormalizeEmail(u.Sensitive.Email))

	identities := make([]string, 0, len(u.Sensitive.Identities))
	for provider, externalID := range u.Sensitive.Identities {
		identities = append(identities, hasher.Hash(domain.IdentityKey(provider, externalID)))
	}
	slices.Sort(identities)

	return domain.EncryptedPrincipal{
		Metadata:       u.Metadata,
		Kind:           domain.KindUser,
		EmailHash:      &emailHash,
		IdentityHashes: identities,
		HashSecretKey:  hasher.SecretKey(),
		Sensitive:      sealed.Envelope(),
	}, nil
}

func (userConverter) DoDecrypt(
	_ context.Context,
	p domain.EncryptedPrincipal,
	payload domain.UserSensitiveData,
) (domain.User, error) {
	if p.Kind != domain.KindUser {
		return domain.User{}, fmt.Errorf("%w: %q is not a user", domain.ErrUnknownKind, p.Kind)
	}
	return domain.User{Metadata: p.Metadata, Sensitive: payload}, nil
}

// guestConverter stores no searchable hashes.
type guestConverter struct{}

func (guestConverter) Sensitive(g domain.Guest) domain.GuestSensitiveData {
	return g.Sensitive
}

func (guestConverter) EncryptedSensitive(p domain.EncryptedPrincipal) cryptoDomain.Encrypted[domain.GuestSensitiveData] {
	return cryptoDomain.EncryptedFrom[domain.GuestSensitiveData](p.Sensitive)
}

func (guestConverter) DocumentID(p domain.EncryptedPrincipal) uuid.UUID {
	return p.ID
}

func (guestConverter) DoEncrypt(
	_ context.Context,
	g domain.Guest,
	sealed cryptoDomain.Encrypted[domain.GuestSensitiveData],
) (domain.EncryptedPrincipal, error) {
	return domain.EncryptedPrincipal{
		Metadata:  g.Metadata,
		Kind:      domain.KindGuest,
		Sensitive: sealed.Envelope(),
	}, nil
}

func (guestConverter) DoDecrypt(
	_ context.Context,
	p domain.EncryptedPrincipal,
	payload domain.GuestSensitiveData,
) (domain.Guest, error) {
	if p.Kind != domain.KindGuest {
		return domain.Guest{}, fmt.Errorf("%w: %q is not a guest", domain.ErrUnknownKind, p.Kind)
	}
	return domain.Guest{Metadata: p.Metadata, Sensitive: payload}, nil
}

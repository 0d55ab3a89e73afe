package usecase

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
	appValidation "github.com/antistereov/singularity-core-sub003/internal/validation"
)

const defaultUserRole = "user"

var passwordPolicy = appValidation.PasswordStrength{
	MinLength:     8,
	RequireUpper:  true,
	RequireLower:  true,
	RequireNumber: true,
}

// userUseCase implements UserUseCase.
type userUseCase struct {
	engine     *UserEngine
	repo       PrincipalRepository
	hashes     cryptoService.HashService
	passwords  *pwdhash.PasswordHasher
	postCommit PostCommitHook
	now        func() time.Time
}

// Validate checks the registration input.
func (i RegisterUserInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required, appValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&i.Email, validation.Required, appValidation.Email, validation.Length(3, 320)),
		validation.Field(&i.Password, validation.Required, passwordPolicy),
		validation.Field(&i.Roles, validation.Each(appValidation.Slug)),
		validation.Field(&i.Groups, validation.Each(appValidation.Slug)),
	)
	return appValidation.WrapValidationError(err)
}

// Register validates input, hashes the password and stores a new user.
func (u *userUseCase) Register(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(input.Email)
	exists, err := u.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	hashedPassword, err := u.passwords.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate user id")
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []string{defaultUserRole}
	}

	now := u.now().UTC()
	user := domain.User{
		Metadata: domain.Metadata{
			ID:         id,
			Roles:      roles,
			Groups:     input.Groups,
			CreatedAt:  now,
			UpdatedAt:  now,
			LastActive: now,
		},
		Sensitive: domain.UserSensitiveData{
			Name:     strings.TrimSpace(input.Name),
			Email:    email,
			Password: hashedPassword,
		},
	}

	saved, err := u.engine.Save(ctx, user)
	if err != nil {
		return nil, u.saveError(err)
	}

	if u.postCommit != nil {
		if err := u.postCommit(ctx, &saved); err != nil {
			return &saved, &apperrors.PostCommitSideEffectError{Op: "register", Err: err}
		}
	}

	return &saved, nil
}

// Save encrypts and stores user, refreshing UpdatedAt. It fails with
// ErrEmailAlreadyExists when another user owns the email under any hash secret.
func (u *userUseCase) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := *user
	doc.Sensitive.Email = domain.NormalizeEmail(doc.Sensitive.Email)

	hashes, err := u.candidateHashes(ctx, doc.Sensitive.Email)
	if err != nil {
		return nil, err
	}
	owner, err := u.repo.FindByEmailHash(ctx, hashes)
	switch {
	case err == nil && owner.ID != doc.ID:
		return nil, domain.ErrEmailAlreadyExists
	case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	doc.UpdatedAt = u.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	saved, err := u.engine.Save(ctx, doc)
	if err != nil {
		return nil, u.saveError(err)
	}
	return &saved, nil
}

// FindByID retrieves a user by id.
func (u *userUseCase) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := u.engine.FindByID(ctx, id)
	if err != nil {
		return nil, u.lookupError(err)
	}
	return &user, nil
}

// FindByIDOrNil returns nil without error when no user has the id.
func (u *userUseCase) FindByIDOrNil(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return u.engine.FindByIDOrNil(ctx, id)
}

// FindByEmail resolves the user through the email hash and decrypts only the match.
func (u *userUseCase) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	hashes, err := u.candidateHashes(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	doc, err := u.repo.FindByEmailHash(ctx, hashes)
	if err != nil {
		return nil, u.lookupError(err)
	}

	user, err := u.engine.Decrypt(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail reports whether a user owns the email under any hash secret.
func (u *userUseCase) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	hashes, err := u.candidateHashes(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return u.repo.ExistsByEmailHash(ctx, hashes)
}

// FindByIdentity resolves the user linked to an external identity.
func (u *userUseCase) FindByIdentity(ctx context.Context, provider, externalID string) (*domain.User, error) {
	hashes, err := u.candidateHashes(ctx, domain.IdentityKey(provider, externalID))
	if err != nil {
		return nil, err
	}

	doc, err := u.repo.FindByIdentityHash(ctx, hashes)
	if err != nil {
		return nil, u.lookupError(err)
	}

	user, err := u.engine.Decrypt(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyPassword compares password with the stored hash in constant time.
func (u *userUseCase) VerifyPassword(user *domain.User, password string) bool {
	if user == nil || user.Sensitive.Password == "" {
		return false
	}
	ok, err := u.passwords.Verify([]byte(password), user.Sensitive.Password)
	if err != nil {
		return false
	}
	return ok
}

// Delete removes a user by id.
func (u *userUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return u.engine.DeleteByID(ctx, id)
}

// List returns one page of users.
func (u *userUseCase) List(
	ctx context.Context,
	pageable sensitive.Pageable,
	criteria sensitive.Criteria,
) (sensitive.Page[domain.User], error) {
	return u.engine.FindAllPaginated(ctx, pageable, criteria)
}

// FindAll lazily decrypts every user.
func (u *userUseCase) FindAll(ctx context.Context) iter.Seq2[domain.User, error] {
	return u.engine.FindAll(ctx)
}

// RotateSecret re-encrypts users written under an old encryption secret.
func (u *userUseCase) RotateSecret(ctx context.Context) (sensitive.RotationReport, error) {
	return u.engine.RotateSecret(ctx)
}

// RotateHashSecret recomputes email and identity hashes written under an old hash secret.
func (u *userUseCase) RotateHashSecret(ctx context.Context) (sensitive.RotationReport, error) {
	return u.engine.RotateHashSecret(ctx)
}

// candidateHashes hashes plaintext under every hash secret so that documents not
// yet moved to the current hash secret still match.
func (u *userUseCase) candidateHashes(ctx context.Context, plaintext string) ([]string, error) {
	all, err := u.hashes.HashUnderAllSecrets(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(all))
	for _, h := range all {
		values = append(values, h.Value)
	}
	return values, nil
}

func (u *userUseCase) lookupError(err error) error {
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	return err
}

func (u *userUseCase) saveError(err error) error {
	if apperrors.Is(err, domain.ErrEmailAlreadyExists) {
		return domain.ErrEmailAlreadyExists
	}
	return err
}

// NewUserUseCase creates a UserUseCase. hook may be nil.
func NewUserUseCase(
	engine *UserEngine,
	repo PrincipalRepository,
	hashes cryptoService.HashService,
	hook PostCommitHook,
) UserUseCase {
	passwords, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyInteractive),
	)
	if err != nil {
		// Only an invalid policy fails here.
		panic(err)
	}

	return &userUseCase{
		engine:     engine,
		repo:       repo,
		hashes:     hashes,
		passwords:  passwords,
		postCommit: hook,
		now:        time.Now,
	}
}

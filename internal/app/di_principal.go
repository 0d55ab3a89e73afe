package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	principalRepository "github.com/antistereov/singularity-core-sub003/internal/principal/repository"
	principalUseCase "github.com/antistereov/singularity-core-sub003/internal/principal/usecase"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// PrincipalRepository returns the unscoped principal repository.
func (c *Container) PrincipalRepository() (*principalRepository.PrincipalRepository, error) {
	return c.principalRepo.get(c.initPrincipalRepository)
}

// UserEngine returns the CRUD engine for users.
func (c *Container) UserEngine() (*principalUseCase.UserEngine, error) {
	return c.userEngine.get(c.initUserEngine)
}

// GuestEngine returns the CRUD engine for guests.
func (c *Container) GuestEngine() (*principalUseCase.GuestEngine, error) {
	return c.guestEngine.get(c.initGuestEngine)
}

// UserUseCase returns the user use case wrapped with business metrics.
func (c *Container) UserUseCase() (principalUseCase.UserUseCase, error) {
	return c.userUseCase.get(c.initUserUseCase)
}

// GuestUseCase returns the guest use case wrapped with business metrics.
func (c *Container) GuestUseCase() (principalUseCase.GuestUseCase, error) {
	return c.guestUseCase.get(c.initGuestUseCase)
}

// PrincipalUseCase returns the use case resolving principals of any kind.
func (c *Container) PrincipalUseCase() (principalUseCase.PrincipalUseCase, error) {
	return c.principalUseCase.get(c.initPrincipalUseCase)
}

func (c *Container) initPrincipalRepository() (*principalRepository.PrincipalRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for principal repository: %w", err)
	}

	var repo *principalRepository.PrincipalRepository
	switch c.config.DBDriver {
	case "mysql":
		repo = principalRepository.NewMySQLPrincipalRepository(db)
	case "postgres":
		repo = principalRepository.NewPostgreSQLPrincipalRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
	return repo.WithBatchSize(c.config.DBStreamBatchSize), nil
}

// engineOptions are shared by every document family.
func (c *Container) engineOptions() ([]sensitive.Option, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if c.config.RotationRateLimitPerSec > 0 {
		limiter = rate.NewLimiter(
			rate.Limit(c.config.RotationRateLimitPerSec),
			c.config.RotationRateLimitBurst,
		)
	}

	return []sensitive.Option{
		sensitive.WithLogger(c.Logger()),
		sensitive.WithLimiter(limiter),
		sensitive.WithTxManager(txManager),
		sensitive.WithMaxPageSize(c.config.PaginationMaxSize),
	}, nil
}

func (c *Container) initUserEngine() (*principalUseCase.UserEngine, error) {
	repo, err := c.PrincipalRepository()
	if err != nil {
		return nil, err
	}
	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, err
	}
	hashes, err := c.HashService()
	if err != nil {
		return nil, err
	}
	opts, err := c.engineOptions()
	if err != nil {
		return nil, err
	}
	return principalUseCase.NewUserEngine(repo.ForKind(domain.KindUser), encryption, hashes, opts...), nil
}

func (c *Container) initGuestEngine() (*principalUseCase.GuestEngine, error) {
	repo, err := c.PrincipalRepository()
	if err != nil {
		return nil, err
	}
	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, err
	}
	opts, err := c.engineOptions()
	if err != nil {
		return nil, err
	}
	return principalUseCase.NewGuestEngine(repo.ForKind(domain.KindGuest), encryption, opts...), nil
}

func (c *Container) initUserUseCase() (principalUseCase.UserUseCase, error) {
	engine, err := c.UserEngine()
	if err != nil {
		return nil, err
	}
	repo, err := c.PrincipalRepository()
	if err != nil {
		return nil, err
	}
	hashes, err := c.HashService()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	hook := func(ctx context.Context, user *domain.User) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "user registered", slog.String("user_id", user.ID.String()))
		return nil
	}

	useCase := principalUseCase.NewUserUseCase(engine, repo.ForKind(domain.KindUser), hashes, hook)
	return principalUseCase.NewUserUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initGuestUseCase() (principalUseCase.GuestUseCase, error) {
	engine, err := c.GuestEngine()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}
	return principalUseCase.NewGuestUseCaseWithMetrics(principalUseCase.NewGuestUseCase(engine), businessMetrics), nil
}

func (c *Container) initPrincipalUseCase() (principalUseCase.PrincipalUseCase, error) {
	repo, err := c.PrincipalRepository()
	if err != nil {
		return nil, err
	}
	users, err := c.UserEngine()
	if err != nil {
		return nil, err
	}
	guests, err := c.GuestEngine()
	if err != nil {
		return nil, err
	}
	return principalUseCase.NewPrincipalUseCase(repo, users, guests), nil
}

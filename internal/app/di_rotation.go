package app

import (
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/rotation"
)

// RotationRunner returns the runner holding every rotation sweep.
func (c *Container) RotationRunner() (*rotation.Runner, error) {
	return c.rotationRunner.get(c.initRotationRunner)
}

// RotationScheduler returns the scheduler running every sweep each RotationInterval.
func (c *Container) RotationScheduler() (*rotation.Scheduler, error) {
	return c.rotationScheduler.get(c.initRotationScheduler)
}

func (c *Container) initRotationRunner() (*rotation.Runner, error) {
	users, err := c.UserUseCase()
	if err != nil {
		return nil, err
	}
	guests, err := c.GuestUseCase()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	return rotation.NewRunner(
		c.Logger(),
		businessMetrics,
		rotation.Sweep{Document: string(domain.KindUser), Target: rotation.TargetEncryption, Run: users.RotateSecret},
		rotation.Sweep{Document: string(domain.KindUser), Target: rotation.TargetHash, Run: users.RotateHashSecret},
		rotation.Sweep{Document: string(domain.KindGuest), Target: rotation.TargetEncryption, Run: guests.RotateSecret},
	), nil
}

func (c *Container) initRotationScheduler() (*rotation.Scheduler, error) {
	runner, err := c.RotationRunner()
	if err != nil {
		return nil, err
	}
	return rotation.NewScheduler(
		runner,
		c.config.RotationInterval,
		c.Logger(),
		rotation.TargetEncryption,
		rotation.TargetHash,
	), nil
}

package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/antistereov/singularity-core-sub003/cmd/app/commands"
	"github.com/antistereov/singularity-core-sub003/internal/app"
	"github.com/antistereov/singularity-core-sub003/internal/config"
	secretStore "github.com/antistereov/singularity-core-sub003/internal/secret/store"
)

func getSecretCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-secret",
			Usage: "Generate a new encryption or hash secret entry",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "category",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Secret category (encryption or hash)",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Usage:   "aes-gcm, chacha20-poly1305, aes-siv or aes-ecb for encryption; hmac-sha256 for hash",
				},
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Usage:   "Secret ID (e.g., enc-2026-10)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "Wrap the secret with a KMS key (base64key://, gcpkms://, awskms://, azurekeyvault://, hashivault://)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())

				return commands.RunCreateSecret(
					ctx,
					secretStore.OpenKeeper,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("category"),
					cmd.String("algorithm"),
					cmd.String("id"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-secrets",
			Usage: "Re-encrypt and re-hash stored documents under the current secrets",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "target",
					Aliases: []string{"t"},
					Value:   "all",
					Usage:   "Rotation target: encryption, hash or all",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				runner, err := container.RotationRunner()
				if err != nil {
					return err
				}

				return commands.RunRotateSecrets(
					ctx,
					runner,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("target"),
					cmd.String("format"),
				)
			},
		},
	}
}

package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
)

// KeeperOpener opens the KMS keeper for a key URI.
type KeeperOpener func(ctx context.Context, keyURI string) (secretDomain.KMSKeeper, error)

// RunCreateSecret generates random key material for a new secret and prints the
// entry to append to ENCRYPTION_SECRETS or HASH_SECRETS.
//
// When kmsKeyURI is set the key material is encrypted with the keeper and the entry
// holds the KMS ciphertext; SECRETS_KMS_KEY_URI must then point at the same key.
// If id is empty it defaults to "<category>-YYYY-MM-DD". The plaintext key is
// zeroed before returning.
func RunCreateSecret(
	ctx context.Context,
	openKeeper KeeperOpener,
	logger *slog.Logger,
	out io.Writer,
	category, algorithm, id, kmsKeyURI string,
) error {
	cat, err := secretDomain.ParseCategory(category)
	if err != nil {
		return err
	}

	alg := cat.DefaultAlgorithm()
	if algorithm != "" {
		alg = cryptoDomain.Algorithm(algorithm)
	}
	if !cat.Allows(alg) {
		return fmt.Errorf("%w: %s for %s", secretDomain.ErrAlgorithmNotAllowed, alg, cat)
	}

	if id == "" {
		id = fmt.Sprintf("%s-%s", cat, time.Now().UTC().Format("2006-01-02"))
	}
	if strings.ContainsAny(id, ":,") {
		return fmt.Errorf("%w: secret id must not contain ':' or ','", secretDomain.ErrInvalidSecretsFormat)
	}

	key := make([]byte, alg.KeySize())
	defer cryptoDomain.Zero(key)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}

	value := key
	if kmsKeyURI != "" {
		keeper, err := openKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
			}
		}()

		value, err = keeper.Encrypt(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to encrypt secret with KMS: %w", err)
		}
	}

	secretsVar, activeVar := "ENCRYPTION_SECRETS", "ACTIVE_ENCRYPTION_SECRET_ID"
	if cat == secretDomain.CategoryHash {
		secretsVar, activeVar = "HASH_SECRETS", "ACTIVE_HASH_SECRET_ID"
	}
	entry := fmt.Sprintf("%s:%s:%s", id, alg, base64.StdEncoding.EncodeToString(value))

	logger.Info("secret created",
		slog.String("category", string(cat)),
		slog.String("algorithm", string(alg)),
		slog.String("id", id),
		slog.Bool("kms", kmsKeyURI != ""),
	)

	_, _ = fmt.Fprintf(out, "# Append the entry to %s and keep older entries until rotation completes\n", secretsVar)
	if kmsKeyURI != "" {
		_, _ = fmt.Fprintf(out, "SECRETS_KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(out, "%s=\"%s\"\n", secretsVar, entry)
	_, _ = fmt.Fprintf(out, "%s=\"%s\"\n", activeVar, id)
	return nil
}

// Package secrets resolves sensitive configuration values from Vault,
// falling back to the static configuration when Vault is disabled.
package secrets

import (
	"context"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/config"
)

// VaultSource reads secrets from a Vault KV v2 mount.
type VaultSource struct {
	client *vaultapi.Client
	mount  string
	path   string
	logger *zap.Logger
}

// NewVaultSource creates a VaultSource from the vault configuration.
func NewVaultSource(cfg config.VaultConfig, logger *zap.Logger) (*VaultSource, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("vault address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultSource{
		client: client,
		mount:  cfg.Mount,
		path:   cfg.Path,
		logger: logger,
	}, nil
}

// Get reads a single string field from the configured KV v2 secret.
func (s *VaultSource) Get(ctx context.Context, key string) (string, error) {
	secret, err := s.client.KVv2(s.mount).Get(ctx, s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read vault secret %s/%s: %w", s.mount, s.path, err)
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("vault secret %s/%s has no string field %q", s.mount, s.path, key)
	}

	s.logger.Debug("resolved secret from vault",
		zap.String("mount", s.mount),
		zap.String("path", s.path),
		zap.String("key", key),
	)
	return value, nil
}

// ResolveJWTSecret returns the JWT signing secret, preferring Vault when
// enabled over the value in the configuration file.
func ResolveJWTSecret(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if !cfg.Vault.Enabled {
		return cfg.Auth.JWT.Secret, nil
	}

	source, err := NewVaultSource(cfg.Vault, logger)
	if err != nil {
		return "", err
	}
	return source.Get(ctx, cfg.Vault.Key)
}

// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package config loads walletctl settings: config.yaml in the data
// directory over built-in defaults, then WALLET_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/ethwallet/internal/keystore"
	"github.com/aplane-algo/ethwallet/internal/legacy"
)

// EnvPrefix prefixes every environment override, e.g. WALLET_LOG_LEVEL.
const EnvPrefix = "WALLET"

// DefaultDataDir is used when neither -d nor WALLET_DATA is given.
const DefaultDataDir = "~/.ethwallet"

// Config holds walletctl configuration. Relative paths are resolved against
// the data directory.
type Config struct {
	SecretStoreDir    string `yaml:"secret_store_dir" envconfig:"SECRET_STORE_DIR" description:"Encrypted secret store directory"`
	LegacyKeystoreDir string `yaml:"legacy_keystore_dir" envconfig:"LEGACY_KEYSTORE_DIR" description:"Directory of legacy key files to migrate"`
	PrefsDB           string `yaml:"prefs_db" envconfig:"PREFS_DB" description:"Address list database"`
	KeyPrefix         string `yaml:"key_prefix" envconfig:"KEY_PREFIX" description:"Prefix for every secret store key"`

	ExportScryptN int `yaml:"export_scrypt_n" envconfig:"EXPORT_SCRYPT_N" description:"scrypt N for exported key files"`
	ExportScryptP int `yaml:"export_scrypt_p" envconfig:"EXPORT_SCRYPT_P" description:"scrypt P for exported key files"`

	BackupTempDir    string `yaml:"backup_temp_dir" envconfig:"BACKUP_TEMP_DIR" description:"Where backups are staged (system temp if empty)"`
	BackupFilePrefix string `yaml:"backup_file_prefix" envconfig:"BACKUP_FILE_PREFIX" description:"Prefix of staged backup file names"`

	// PassphraseCommand, when set, supplies the secret store passphrase
	// instead of a terminal prompt.
	PassphraseCommand []string `yaml:"passphrase_command" envconfig:"PASSPHRASE_COMMAND" description:"Command that prints the store passphrase"`

	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" description:"debug, info, warn or error"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		SecretStoreDir:    "secrets",
		LegacyKeystoreDir: "keystore",
		PrefsDB:           "prefs.db",
		ExportScryptN:     legacy.StandardScryptParams.N,
		ExportScryptP:     legacy.StandardScryptParams.P,
		BackupFilePrefix:  "ethwallet",
		LogLevel:          "info",
	}
}

// GetDataDir resolves the data directory: -d flag > WALLET_DATA > ~/.ethwallet.
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return expandHome(flagValue)
	}
	if envDir := os.Getenv(EnvPrefix + "_DATA"); envDir != "" {
		return expandHome(envDir)
	}
	return expandHome(DefaultDataDir)
}

// GetConfigPath returns the config file path inside dataDir.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// Load reads config.yaml from dataDir, applies environment overrides,
// validates, and resolves relative paths.
func Load(dataDir string) (Config, error) {
	cfg, err := LoadFromPath(GetConfigPath(dataDir))
	if err != nil {
		return cfg, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.SecretStoreDir = ResolvePath(cfg.SecretStoreDir, dataDir)
	cfg.LegacyKeystoreDir = ResolvePath(cfg.LegacyKeystoreDir, dataDir)
	cfg.PrefsDB = ResolvePath(cfg.PrefsDB, dataDir)
	if cfg.BackupTempDir != "" {
		cfg.BackupTempDir = ResolvePath(cfg.BackupTempDir, dataDir)
	}
	return cfg, nil
}

// LoadFromPath overlays the YAML file at path on DefaultConfig. A missing
// file yields the defaults.
func LoadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	if c.ExportScryptN < 2 || c.ExportScryptN&(c.ExportScryptN-1) != 0 {
		return fmt.Errorf("export_scrypt_n must be a power of two > 1, got %d", c.ExportScryptN)
	}
	if c.ExportScryptP < 1 {
		return fmt.Errorf("export_scrypt_p must be positive, got %d", c.ExportScryptP)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.SecretStoreDir == "" || c.PrefsDB == "" {
		return fmt.Errorf("secret_store_dir and prefs_db are required")
	}
	return nil
}

// KeystoreConfig maps the settings onto the facade configuration.
func (c Config) KeystoreConfig() keystore.Config {
	return keystore.Config{
		ExportScrypt: legacy.ScryptParams{N: c.ExportScryptN, P: c.ExportScryptP},
	}
}

// ResolvePath makes path absolute relative to baseDir, expanding ~.
func ResolvePath(path, baseDir string) string {
	path = expandHome(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

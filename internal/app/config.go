package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
	"grove/internal/store"
)

// ConfigFile is the name of the optional config file inside Home.
const ConfigFile = "config.toml"

// Store backends.
const (
	StoreFile   = "file"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home               string        `toml:"-"` // config directory, e.g. $HOME/.grove
	Store              string        `toml:"store"`
	CipherSuite        uint16        `toml:"cipher_suite"`
	KeyPackageLifetime time.Duration `toml:"key_package_lifetime"`
	LogLevel           string        `toml:"log_level"`
	Parallelism        int           `toml:"parallelism"`
	Scrypt             ScryptConfig  `toml:"scrypt"`
}

// ScryptConfig mirrors store.ScryptParams in the config file.
type ScryptConfig struct {
	N int `toml:"n"`
	R int `toml:"r"`
	P int `toml:"p"`
}

// DefaultConfig returns the defaults for home.
func DefaultConfig(home string) Config {
	sp := store.DefaultScryptParams()
	return Config{
		Home:               home,
		Store:              StoreFile,
		CipherSuite:        uint16(domain.CipherSuiteX25519AES128GCMSHA256Ed25519),
		KeyPackageLifetime: keypackage.DefaultLifetime,
		LogLevel:           "info",
		Parallelism:        4,
		Scrypt:             ScryptConfig{N: sp.N, R: sp.R, P: sp.P},
	}
}

// LoadConfig reads <home>/config.toml over the defaults. A missing file is
// not an error; unknown keys are.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)
	path := filepath.Join(home, ConfigFile)
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.Home = home
	return cfg, cfg.Validate()
}

// Validate checks the values a config file can get wrong.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreBolt, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store %q (want %s, %s or %s)", c.Store, StoreFile, StoreBolt, StoreSQLite)
	}
	if _, err := crypto.LookupSuite(domain.CipherSuite(c.CipherSuite)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.KeyPackageLifetime <= 0 {
		return fmt.Errorf("config: key_package_lifetime must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// ScryptParams converts the scrypt section.
func (c Config) ScryptParams() store.ScryptParams {
	return store.ScryptParams{N: c.Scrypt.N, R: c.Scrypt.R, P: c.Scrypt.P}
}

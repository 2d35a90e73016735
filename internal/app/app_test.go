package app_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/app"
	"grove/internal/domain"
)

const pass = "Correct-Horse-42"

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, app.DefaultConfig(home), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFile), []byte(`
store = "sqlite"
cipher_suite = 3
key_package_lifetime = "48h"
log_level = "debug"

[scrypt]
n = 1024
r = 8
p = 1
`), 0o600))

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, app.StoreSQLite, cfg.Store)
	assert.Equal(t, uint16(domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519), cfg.CipherSuite)
	assert.Equal(t, 48*time.Hour, cfg.KeyPackageLifetime)
	assert.Equal(t, 1024, cfg.ScryptParams().N)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, home, cfg.Home)
}

func TestLoadConfig_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":   `colour = "blue"`,
		"unknown store": `store = "redis"`,
		"bad suite":     `cipher_suite = 2`,
		"bad level":     `log_level = "loud"`,
	} {
		t.Run(name, func(t *testing.T) {
			home := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(home, app.ConfigFile), []byte(body), 0o600))
			_, err := app.LoadConfig(home)
			assert.Error(t, err)
		})
	}
}

func TestNewWire_Backends(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, backend := range []string{app.StoreFile, app.StoreBolt, app.StoreSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := app.DefaultConfig(t.TempDir())
			cfg.Store = backend
			cfg.Scrypt = app.ScryptConfig{N: 16, R: 8, P: 1}

			w, err := app.NewWire(cfg, log)
			require.NoError(t, err)
			defer w.Close()
			a := app.New(w)

			_, _, err = a.IDs.CreateClient(pass, []byte("alice"))
			require.NoError(t, err)
			ctx := context.Background()
			id := domain.GroupIDFromString("team-42")
			out, err := a.Groups.CreateGroup(ctx, pass, id, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.Epoch(1), out.Summary.Epoch)

			// stored blobs are sealed
			raw, err := w.GroupStore.LoadGroup(ctx, id)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "team-42")

			sum, err := a.Groups.LoadGroup(ctx, pass, id)
			require.NoError(t, err)
			assert.Equal(t, out.Summary.EpochAuthenticator, sum.EpochAuthenticator)
		})
	}
}

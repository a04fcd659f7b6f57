package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Run.NumTracks)
	assert.Equal(t, 15*time.Second, cfg.Run.Snippet())
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, "https://itunes.apple.com/search", cfg.Catalog.BaseURL)
	assert.Equal(t, "10", cfg.Upload.CategoryID)
	assert.Equal(t, "output", cfg.Paths.OutputDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
run:
  num_tracks: 2
  snippet_sec: 10
  pause_sec: 2
  intro_sec: 3
  outro_sec: 5
  answer_sec: 4
video:
  fps: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Run.NumTracks)
	assert.Equal(t, 10*time.Second, cfg.Run.Snippet())
	assert.Equal(t, 30, cfg.Video.FPS)
	// Untouched sections keep their defaults.
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 1080, cfg.Video.Width)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadRuns(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tracks", func(c *Config) { c.Run.NumTracks = 0 }},
		{"zero snippet", func(c *Config) { c.Run.SnippetSec = 0 }},
		{"zero answer", func(c *Config) { c.Run.AnswerSec = 0 }},
		{"negative pause", func(c *Config) { c.Run.PauseSec = -1 }},
		{"fade too long", func(c *Config) { c.Audio.FadeSec = 20 }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"zero fps", func(c *Config) { c.Video.FPS = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateUploadRequiresSecretsFile(t *testing.T) {
	cfg := Default()
	cfg.Run.Upload = true
	cfg.Upload.ClientSecretsFile = filepath.Join(t.TempDir(), "missing.json")
	assert.Error(t, cfg.Validate())

	// With a readable secrets file the same configuration passes.
	path := filepath.Join(t.TempDir(), "client_secret.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"installed":{}}`), 0600))
	cfg.Upload.ClientSecretsFile = path
	assert.NoError(t, cfg.Validate())
}

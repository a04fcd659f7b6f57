package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all run configuration for one pipeline invocation.
// It is built once in main and passed through the stages unchanged.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Audio   AudioConfig   `yaml:"audio"`
	Video   VideoConfig   `yaml:"video"`
	Catalog CatalogConfig `yaml:"catalog"`
	Upload  UploadConfig  `yaml:"upload"`
	Paths   PathsConfig   `yaml:"paths"`
}

type RunConfig struct {
	NumTracks   int     `yaml:"num_tracks"`
	SnippetSec  float64 `yaml:"snippet_sec"`
	PauseSec    float64 `yaml:"pause_sec"`
	IntroSec    float64 `yaml:"intro_sec"`
	OutroSec    float64 `yaml:"outro_sec"`
	AnswerSec   float64 `yaml:"answer_sec"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Upload      bool    `yaml:"upload"`
}

func (r RunConfig) Snippet() time.Duration { return secs(r.SnippetSec) }
func (r RunConfig) Pause() time.Duration   { return secs(r.PauseSec) }
func (r RunConfig) Intro() time.Duration   { return secs(r.IntroSec) }
func (r RunConfig) Outro() time.Duration   { return secs(r.OutroSec) }
func (r RunConfig) Answer() time.Duration  { return secs(r.AnswerSec) }

type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	FadeSec    float64 `yaml:"fade_sec"`
}

func (a AudioConfig) Fade() time.Duration { return secs(a.FadeSec) }

type VideoConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FPS      int    `yaml:"fps"`
	Bars     int    `yaml:"bars"`
	FontFile string `yaml:"font_file"`
}

type CatalogConfig struct {
	BaseURL     string `yaml:"base_url"`
	Country     string `yaml:"country"`
	SearchLimit int    `yaml:"search_limit"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type UploadConfig struct {
	ClientSecretsFile string   `yaml:"client_secrets_file"`
	TokenFile         string   `yaml:"token_file"`
	CategoryID        string   `yaml:"category_id"`
	PrivacyStatus     string   `yaml:"privacy_status"`
	Tags              []string `yaml:"tags"`
}

type PathsConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Default returns the configuration used when no config.yaml is present.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			NumTracks:   5,
			SnippetSec:  15,
			PauseSec:    2,
			IntroSec:    3,
			OutroSec:    5,
			AnswerSec:   4,
			Title:       "Music Blind Test",
			Description: "Can you guess the artist and song?",
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   2,
			FadeSec:    0.5,
		},
		Video: VideoConfig{
			Width:  1080,
			Height: 1920,
			FPS:    24,
			Bars:   12,
		},
		Catalog: CatalogConfig{
			BaseURL:     "https://itunes.apple.com/search",
			Country:     "US",
			SearchLimit: 25,
			MaxAttempts: 12,
		},
		Upload: UploadConfig{
			ClientSecretsFile: "client_secret.json",
			TokenFile:         "youtube_token.json",
			CategoryID:        "10", // Music
			PrivacyStatus:     "public",
			Tags:              []string{"blind test", "music quiz", "guess the song"},
		},
		Paths: PathsConfig{
			OutputDir: "output",
		},
	}
}

// Load reads the YAML config at path, falling back to defaults when the
// file does not exist. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a run. It is called
// before any network or rendering work happens.
func (c *Config) Validate() error {
	if c.Run.NumTracks < 1 {
		return fmt.Errorf("num_tracks must be at least 1, got %d", c.Run.NumTracks)
	}
	if c.Run.SnippetSec <= 0 {
		return fmt.Errorf("snippet_sec must be positive, got %g", c.Run.SnippetSec)
	}
	if c.Run.AnswerSec <= 0 {
		return fmt.Errorf("answer_sec must be positive, got %g", c.Run.AnswerSec)
	}
	if c.Run.PauseSec < 0 || c.Run.IntroSec < 0 || c.Run.OutroSec < 0 {
		return fmt.Errorf("pause_sec, intro_sec and outro_sec must not be negative")
	}
	if c.Audio.FadeSec < 0 || secs(c.Audio.FadeSec) > c.Run.Snippet()/2 {
		return fmt.Errorf("fade_sec %g does not fit a %gs snippet", c.Audio.FadeSec, c.Run.SnippetSec)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.Channels < 1 {
		return fmt.Errorf("invalid audio format: %d Hz, %d channels", c.Audio.SampleRate, c.Audio.Channels)
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 || c.Video.Bars <= 0 {
		return fmt.Errorf("invalid video geometry: %dx%d @%dfps, %d bars",
			c.Video.Width, c.Video.Height, c.Video.FPS, c.Video.Bars)
	}
	if c.Run.Upload {
		if _, err := os.Stat(c.Upload.ClientSecretsFile); err != nil {
			return fmt.Errorf("upload requested but client secrets file %s is not readable: %w",
				c.Upload.ClientSecretsFile, err)
		}
	}
	return nil
}

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

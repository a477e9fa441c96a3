package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"soundslot/pkg/spec"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration, loaded from .env, SOUNDSLOT_* variables
// and an optional YAML file.
type Config struct {
	DataDir      string
	SoundsDir    string
	Manifest     string
	IconsDir     string
	Socket       string
	Output       string // speaker | portaudio
	SampleRate   int
	BufferMS     int
	VisibleRows  int
	Passphrase   string
	LogLevel     string
	ObjectName   string
	DetailsShown bool
}

// Load reads configuration with sane defaults. A missing .env or config file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SOUNDSLOT")
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()
	v.SetDefault("data_dir", filepath.Join(home, spec.DefaultDataDir))
	v.SetDefault("socket", spec.DefaultSocket)
	v.SetDefault("output", "speaker")
	v.SetDefault("sample_rate", spec.DefaultSampleRate)
	v.SetDefault("buffer_ms", spec.DefaultBufferMS)
	v.SetDefault("visible_rows", spec.DefaultRows)
	v.SetDefault("log_level", "info")
	v.SetDefault("object", "default")
	v.SetDefault("details", false)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	dataDir := v.GetString("data_dir")
	cfg := Config{
		DataDir:      dataDir,
		SoundsDir:    v.GetString("sounds_dir"),
		Manifest:     v.GetString("manifest"),
		IconsDir:     v.GetString("icons_dir"),
		Socket:       v.GetString("socket"),
		Output:       v.GetString("output"),
		SampleRate:   positive(v.GetInt("sample_rate"), spec.DefaultSampleRate),
		BufferMS:     positive(v.GetInt("buffer_ms"), spec.DefaultBufferMS),
		VisibleRows:  positive(v.GetInt("visible_rows"), spec.DefaultRows),
		Passphrase:   v.GetString("pack_passphrase"),
		LogLevel:     v.GetString("log_level"),
		ObjectName:   v.GetString("object"),
		DetailsShown: v.GetBool("details"),
	}
	if cfg.SoundsDir == "" {
		cfg.SoundsDir = filepath.Join(dataDir, "sounds")
	}
	if cfg.Manifest == "" {
		cfg.Manifest = filepath.Join(dataDir, "sounds.yaml")
	}
	if cfg.Output != "speaker" && cfg.Output != "portaudio" {
		return Config{}, fmt.Errorf("unknown output %q", cfg.Output)
	}
	return cfg, nil
}

// positive returns n, or fallback when n is not a usable positive value
// (viper yields 0 for unparsable numbers).
func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

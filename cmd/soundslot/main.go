/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"soundslot/internal/config"
	"soundslot/internal/engine"
	"soundslot/internal/engine/paout"
	"soundslot/internal/logging"
	"soundslot/internal/security"
	"soundslot/internal/sound"
	"soundslot/pkg/spec"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           spec.AppName,
	Short:         "Sound board with a single playback slot",
	Version:       fmt.Sprintf("%d.%d", spec.VersionMajor, spec.VersionMinor),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log = logging.New(cfg.LogLevel, os.Stderr)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// ======================================================
// Shared wiring
// ======================================================

func openLibrary() (*sound.Library, error) {
	return sound.OpenLibrary(cfg.ObjectName, cfg.SoundsDir, cfg.Manifest, log.With().Str("component", "library").Logger())
}

func packKey() []byte {
	return security.PackKey(cfg.Passphrase)
}

func openEngine() (*engine.Engine, error) {
	rate := beep.SampleRate(cfg.SampleRate)
	frames := rate.N(time.Duration(cfg.BufferMS) * time.Millisecond)

	var out engine.Output
	switch cfg.Output {
	case "portaudio":
		o, err := paout.Open(rate, frames)
		if err != nil {
			return nil, fmt.Errorf("open portaudio: %w", err)
		}
		out = o
	default:
		o, err := engine.NewSpeaker(rate, frames)
		if err != nil {
			return nil, fmt.Errorf("open speaker: %w", err)
		}
		out = o
	}
	return engine.New(out, rate, packKey(), log.With().Str("component", "engine").Logger()), nil
}

func probeDuration(path string) (time.Duration, error) {
	info, err := engine.Probe(path, packKey())
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// findItem resolves a sound by name or row number.
func findItem(lib *sound.Library, ref string) (*sound.Item, error) {
	for _, it := range lib.Repo.Items() {
		if it.Name() == ref {
			return it, nil
		}
	}
	if i, err := strconv.Atoi(ref); err == nil {
		if it := lib.Repo.At(i); it != nil {
			return it, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", ref, sound.ErrNotFound)
}

/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"soundslot/internal/board"
	"soundslot/internal/icons"
	"soundslot/pkg/spec"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sound board daemon on the control socket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cache := icons.NewCache(cfg.IconsDir, spec.IconSize, log.With().Str("component", "icons").Logger())
	if err := cache.Preload(spec.IconPlay, spec.IconPause); err != nil {
		log.Warn().Err(err).Msg("icons resolve on demand")
	}

	b := board.New(board.Config{
		Library: lib,
		Engine:  eng,
		Icons:   cache,
		Probe:   probeDuration,
		Rows:    cfg.VisibleRows,
		Details: cfg.DetailsShown,
		Log:     log.With().Str("component", "board").Logger(),
	})
	defer b.Close()
	eng.OnCompletion(b.Completed)

	_ = os.Remove(cfg.Socket)
	ln, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Socket, err)
	}
	defer os.Remove(cfg.Socket)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("socket", cfg.Socket).
		Str("object", lib.Object()).
		Int("sounds", lib.Repo.Len()).
		Str("output", cfg.Output).
		Msg("serving")
	return newIPCServer(b, log.With().Str("component", "ipc").Logger()).serve(ctx, ln)
}


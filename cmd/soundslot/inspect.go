/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"os"

	"soundslot/internal/board"
	"soundslot/internal/codec"
	"soundslot/internal/engine"

	"github.com/spf13/cobra"
)

var (
	waveWidth  int
	specWidth  int
	specHeight int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <name|row>",
	Short: "Show duration, size and waveform of a sound",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <name|row> <out.png>",
	Short: "Render the spectrogram of a sound to a PNG file",
	Args:  cobra.ExactArgs(2),
	RunE:  runSpectrogram,
}

func init() {
	inspectCmd.Flags().IntVarP(&waveWidth, "width", "w", 48, "waveform width in characters")
	spectrogramCmd.Flags().IntVar(&specWidth, "width", 512, "image width")
	spectrogramCmd.Flags().IntVar(&specHeight, "height", 256, "image height")
	rootCmd.AddCommand(inspectCmd, spectrogramCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	it, err := findItem(lib, args[0])
	if err != nil {
		return err
	}
	info, err := engine.Probe(lib.Path(it), packKey())
	if err != nil {
		return err
	}
	size, err := lib.Size(it)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:     %s\n", it.Name())
	fmt.Fprintf(out, "file:     %s\n", it.FileName)
	fmt.Fprintf(out, "format:   %d Hz\n", info.Format.SampleRate)
	fmt.Fprintf(out, "details:  %s\n", board.FormatDetail(board.Detail{Duration: info.Duration, Size: size}))
	wave := codec.GenerateWaveformData(codec.Mono(info.PCM, 2), waveWidth)
	fmt.Fprintf(out, "waveform: %s\n", codec.Sparkline(wave))
	return nil
}

func runSpectrogram(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	it, err := findItem(lib, args[0])
	if err != nil {
		return err
	}
	info, err := engine.Probe(lib.Path(it), packKey())
	if err != nil {
		return err
	}
	img := codec.GenerateSpectrogram(codec.Mono(info.PCM, 2), specWidth, specHeight)
	if img == nil {
		return fmt.Errorf("%q is too short for a spectrogram", it.Name())
	}
	data, err := codec.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
	return nil
}

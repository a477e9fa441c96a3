/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"errors"
	"fmt"
	"os"

	"soundslot/internal/engine"
	"soundslot/pkg/audioengine"

	"github.com/spf13/cobra"
)

var (
	sealGain      float64
	sealNormalize bool
)

var sealCmd = &cobra.Command{
	Use:   "seal <in.wav> <out.opx>",
	Short: "Encode a 48 kHz stereo WAV into an opus .opx asset, sealed with the pack passphrase",
	Args:  cobra.ExactArgs(2),
	RunE:  runSeal,
}

func init() {
	sealCmd.Flags().Float64Var(&sealGain, "gain", 1, "linear gain applied before encoding")
	sealCmd.Flags().BoolVar(&sealNormalize, "normalize", false, "scale the loudest sample to 95% of full scale")
	rootCmd.AddCommand(sealCmd)
}

func runSeal(cmd *cobra.Command, args []string) error {
	in, outPath := args[0], args[1]

	gain := sealGain
	if sealNormalize {
		info, err := engine.Probe(in, nil)
		if err != nil {
			return err
		}
		gain = audioengine.PeakGain(info.PCM, 0.95)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := packKey()
	fw, err := audioengine.NewFrameWriter(f, key)
	if err != nil {
		return err
	}

	results := make(chan audioengine.EncoderResult, 64)
	var (
		duration float64
		encErr   error
	)
	go func() {
		duration, encErr = audioengine.StreamEncodeWavToOpus(in, gain, results)
		close(results)
	}()

	var writeErr error
	frames := 0
	for r := range results {
		if r.Error != nil || writeErr != nil {
			continue
		}
		if err := fw.WriteFrame(r.Frame); err != nil {
			writeErr = err
			continue
		}
		frames++
	}
	if err := errors.Join(encErr, writeErr); err != nil {
		os.Remove(outPath)
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}

	sealed := "plain"
	if key != nil {
		sealed = "sealed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames, %.2fs, gain %.2f, %s\n", outPath, frames, duration, gain, sealed)
	return nil
}

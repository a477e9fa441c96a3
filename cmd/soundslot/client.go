/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"soundslot/pkg/spec"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Interactive client for a running daemon",
	Args:  cobra.NoArgs,
	RunE:  runClient,
}

func init() {
	rootCmd.AddCommand(clientCmd)
}

var clientCompleter = readline.NewPrefixCompleter(
	readline.PcItem("ABOUT"),
	readline.PcItem("PING"),
	readline.PcItem("WHOAMI"),
	readline.PcItem("STATUS"),
	readline.PcItem("LIST"),
	readline.PcItem("ROWS"),
	readline.PcItem("TAP"),
	readline.PcItem("STOP"),
	readline.PcItem("SCROLL"),
	readline.PcItem("DETAILS", readline.PcItem("ON"), readline.PcItem("OFF")),
	readline.PcItem("REMOVE"),
	readline.PcItem("MOVE"),
	readline.PcItem("RENAME"),
	readline.PcItem("COPY"),
	readline.PcItem("ADD"),
	readline.PcItem("QUIT"),
)

func runClient(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Socket, err)
	}
	defer conn.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       spec.AppName + "> ",
		AutoComplete: clientCompleter,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s V.%d.%d connected to %s\n", spec.AppName, spec.VersionMajor, spec.VersionMinor, cfg.Socket)
	fmt.Fprintln(rl.Stdout(), `Type "QUIT" to exit`)

	// socket -> terminal
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		relay(conn, rl.Stdout())
		fmt.Fprintln(rl.Stdout(), "SOCKET CLOSED")
		rl.Close()
	}()

	// terminal -> socket
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") {
			fmt.Fprintln(rl.Stdout(), "Bye.")
			break
		}
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	conn.Close()
	<-closed
	return nil
}

func relay(r io.Reader, w io.Writer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fmt.Fprintln(w, sc.Text())
	}
}

/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"

	"soundslot/internal/board"

	"github.com/spf13/cobra"
)

var listDetails bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sounds of the board",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Import sound files into the board",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show duration and size")
	rootCmd.AddCommand(listCmd, addCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}

	var rows []board.RowView
	for i, it := range lib.Repo.Items() {
		v := board.RowView{Index: i, Name: it.Name()}
		if listDetails || cfg.DetailsShown {
			var d board.Detail
			d.Size, _ = lib.Size(it)
			d.Duration, _ = probeDuration(lib.Path(it))
			v.Details = &d
		}
		rows = append(rows, v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), board.Render(rows))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	for _, path := range args {
		it, err := lib.Import(path, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %q (%s)\n", it.Name(), it.FileName)
	}
	return nil
}

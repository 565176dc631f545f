// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of dlcache.
//
//  dlcache is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  dlcache is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with dlcache. If not, see <http://www.gnu.org/licenses/>.

// Command dlcache-admin is an operator tool for inspecting and clearing
// the on-disk state of a dlcache base directory from outside any running
// worker process.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/VertebrateResequencing/dlcache"
)

var baseDir string

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %s\n", err)
	}

	root := &cobra.Command{
		Use:   "dlcache-admin",
		Short: "Inspect and clear a dlcache base directory",
	}

	defaultBaseDir := os.Getenv("DLCACHE_BASE_DIR")
	if defaultBaseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			defaultBaseDir = wd
		}
	}
	root.PersistentFlags().StringVar(&baseDir, "base-dir", defaultBaseDir, "dlcache base directory to operate on")

	root.AddCommand(statsCmd(), purgeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func colorsEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report the size of every cache entry under base-dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := dlcache.ListEntries(baseDir)
			if err != nil {
				return err
			}

			var total int64
			for _, e := range entries {
				total += e.Bytes
				fmt.Printf("%-60s %s\n", e.CacheID, humanize.Bytes(uint64(e.Bytes)))
			}

			totalLine := fmt.Sprintf("TOTAL: %d entries, %s", len(entries), humanize.Bytes(uint64(total)))
			if colorsEnabled() {
				totalLine = color.YellowString(totalLine)
			}
			fmt.Println(totalLine)
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cache entries under base-dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := dlcache.PurgeMatching(baseDir, match)
			if err != nil {
				msg := err.Error()
				if colorsEnabled() {
					msg = color.RedString(msg)
				}
				fmt.Fprintln(os.Stderr, msg)
				return err
			}
			for _, id := range removed {
				fmt.Println(id)
			}
			summary := fmt.Sprintf("purged %d entries", len(removed))
			if colorsEnabled() {
				summary = color.YellowString(summary)
			}
			fmt.Println(summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only purge cache IDs matching this doublestar glob (default: everything)")
	return cmd
}

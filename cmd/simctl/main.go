// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Command simctl inspects a rank's checkpoint directory after (or
// during) a run: listing checkpoints, tailing the latest one, and
// grepping across all of them for a census line of interest.
package main

import (
	"fmt"
	"os"

	"github.com/bitfield/script"
)

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	dir := os.Args[2]

	var err error
	switch command {
	case "ls":
		err = listCheckpoints(dir)
	case "tail":
		err = tailLatest(dir)
	case "grep":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		err = grepCheckpoints(dir, os.Args[3])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "simctl:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: simctl <ls|tail|grep> <checkpoint-dir> [pattern]")
}

// listCheckpoints prints every checkpoint file in dir, oldest first,
// relying on the filenames' zero-padded day numbers to sort naturally.
func listCheckpoints(dir string) error {
	out, err := script.ListFiles(dir + "/*.txt").String()
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	fmt.Print(out)
	return nil
}

// tailLatest prints the newest checkpoint file's contents — the one
// with the lexicographically greatest name, which is also the most
// recent day given the zero-padded day suffix simkernel writes.
func tailLatest(dir string) error {
	latest, err := script.ListFiles(dir + "/*.txt").Last(1).String()
	if err != nil {
		return fmt.Errorf("finding latest checkpoint in %s: %w", dir, err)
	}
	latest = trimNewline(latest)
	if latest == "" {
		return fmt.Errorf("no checkpoints found in %s", dir)
	}
	contents, err := script.File(latest).String()
	if err != nil {
		return fmt.Errorf("reading %s: %w", latest, err)
	}
	fmt.Print(contents)
	return nil
}

// grepCheckpoints prints every line matching pattern across every
// checkpoint file in dir, prefixed with the source file, in the style of
// grep -H.
func grepCheckpoints(dir, pattern string) error {
	files, err := script.ListFiles(dir + "/*.txt").Slice()
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, f := range files {
		matches, err := script.File(f).MatchRegexp(mustCompile(pattern)).String()
		if err != nil {
			return fmt.Errorf("grepping %s: %w", f, err)
		}
		for _, line := range splitNonEmptyLines(matches) {
			fmt.Printf("%s: %s\n", f, line)
		}
	}
	return nil
}

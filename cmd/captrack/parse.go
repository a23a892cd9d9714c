package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scottschatz/software-capitalization-sub001/internal/transcript"
)

func newParseCmd() *cobra.Command {
	var timezone string
	var gapMinutes int

	cmd := &cobra.Command{
		Use:   "parse <transcript-file>",
		Short: "Parse one transcript and print its metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], timezone, gapMinutes)
		},
	}

	cmd.Flags().StringVar(&timezone, "timezone", "America/New_York", "IANA zone for day bucketing")
	cmd.Flags().IntVar(&gapMinutes, "gap-minutes", 15, "idle threshold in minutes")
	return cmd
}

func runParse(cmd *cobra.Command, path, timezone string, gapMinutes int) error {
	out := cmd.OutOrStdout()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	session, err := transcript.ParseFile(path, transcript.Options{
		Location:     loc,
		GapThreshold: time.Duration(gapMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Fprintln(out, "No session records found.")
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

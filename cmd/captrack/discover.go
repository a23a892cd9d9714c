package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scottschatz/software-capitalization-sub001/internal/config"
	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
)

func newDiscoverCmd() *cobra.Command {
	var configPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List candidate projects without registering them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, configPath, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "captrack.yaml", "path to config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func runDiscover(cmd *cobra.Command, configPath string, asJSON bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	candidates, err := discovery.Discover(cmd.Context(), discovery.Options{
		TranscriptRoots: cfg.TranscriptRoots,
		ProjectsDir:     cfg.ProjectsDir,
		Exclude:         cfg.Exclude,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(out, "No candidate projects found.")
		return nil
	}
	for _, c := range candidates {
		markers := ""
		if c.HasRepo {
			markers += " [repo]"
		}
		if c.HasTranscripts {
			markers += " [transcripts]"
		}
		fmt.Fprintf(out, "%-30s %s%s\n", c.Name, c.LocalPath, markers)
	}
	fmt.Fprintf(out, "\n%d candidates\n", len(candidates))
	return nil
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scottschatz/software-capitalization-sub001/internal/agent"
	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
	"github.com/scottschatz/software-capitalization-sub001/internal/github"
	"github.com/scottschatz/software-capitalization-sub001/internal/notify"
)

type syncFlags struct {
	configPath    string
	from          string
	to            string
	reparse       bool
	skipDiscovery bool
}

func newSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one collection cycle and submit the batch",
		Long: "Discovers projects, scans transcripts modified since the checkpoint (or --from),\n" +
			"parses them, extracts commit history, and transmits everything to the store.\n" +
			"--from makes this a backfill; --reparse rescans everything but skips commits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "captrack.yaml", "path to config file")
	cmd.Flags().StringVar(&flags.from, "from", "", "backfill lower bound (YYYY-MM-DD, local)")
	cmd.Flags().StringVar(&flags.to, "to", "", "backfill upper bound (YYYY-MM-DD, local)")
	cmd.Flags().BoolVar(&flags.reparse, "reparse", false, "rescan all transcripts to recompute derived fields; skips commits")
	cmd.Flags().BoolVar(&flags.skipDiscovery, "skip-discovery", false, "skip the project discovery step")
	return cmd
}

func runSync(cmd *cobra.Command, flags syncFlags) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	opts := agent.RunOptions{
		SyncType:      api.SyncIncremental,
		SkipDiscovery: flags.skipDiscovery,
	}
	if flags.reparse {
		opts.SyncType = api.SyncReparse
	}
	if flags.from != "" {
		if flags.reparse {
			return fmt.Errorf("--from and --reparse are mutually exclusive")
		}
		from, err := parseLocalDate(flags.from, cfg)
		if err != nil {
			return err
		}
		opts.From = &from
		opts.SyncType = api.SyncBackfill
	}
	if flags.to != "" {
		to, err := parseLocalDate(flags.to, cfg)
		if err != nil {
			return err
		}
		// Upper bound is exclusive at the next local midnight.
		to = to.AddDate(0, 0, 1)
		opts.To = &to
	}

	orch, notifiers, err := buildOrchestrator(cmd, cfg)
	if err != nil {
		return err
	}

	result, runErr := orch.Run(ctx, opts)

	var resp *api.SyncResponse
	if result != nil {
		resp = result.Response
	}
	notify.Broadcast(ctx, notifiers, notify.SyncSummary(cfg.Developer.Email, opts.SyncType, resp, runErr), logrus.StandardLogger())

	if runErr != nil {
		return runErr
	}
	printRunResult(out, result)
	return nil
}

// buildOrchestrator wires the orchestrator and notifiers from config.
func buildOrchestrator(cmd *cobra.Command, cfg *config.Config) (*agent.Orchestrator, []notify.Notifier, error) {
	log := logrus.StandardLogger()

	states := agent.NewStateStore(cfg.StateDir)
	state, err := states.Load()
	if err != nil {
		return nil, nil, err
	}

	token := cfg.Store.Token
	if token == "" {
		token = state.APIToken
	}

	client := agent.NewClient(cfg.Store.URL, token, Version)

	var enricher agent.Enricher
	if cfg.GitHub.Token != "" {
		enricher = github.NewEnricher(cmd.Context(), cfg.GitHub.Token, log)
	}

	orch := agent.NewOrchestrator(cfg, client, states, enricher, log)
	return orch, notify.FromConfig(cfg.Notify, log), nil
}

// parseLocalDate interprets YYYY-MM-DD at local midnight in the configured
// timezone, matching how days are bucketed.
func parseLocalDate(s string, cfg *config.Config) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func printRunResult(out io.Writer, result *agent.RunResult) {
	fmt.Fprintf(out, "Collected %d sessions, %d commits (%d unmatched dirs, %d empty files)\n",
		result.SessionsCollected, result.CommitsCollected, result.FilesSkipped, result.FilesEmpty)
	if result.Response == nil {
		fmt.Fprintln(out, "Nothing to sync; store not contacted.")
		return
	}
	r := result.Response
	fmt.Fprintf(out, "Store: sessions %d created, %d updated, %d skipped; commits %d created, %d skipped (sync log %d)\n",
		r.SessionsCreated, r.SessionsUpdated, r.SessionsSkipped, r.CommitsCreated, r.CommitsSkipped, r.SyncLogID)
	if result.CheckpointAdvanced {
		fmt.Fprintln(out, "Checkpoint advanced.")
	}
}

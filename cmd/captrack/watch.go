package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scottschatz/software-capitalization-sub001/internal/agent"
	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
	"github.com/scottschatz/software-capitalization-sub001/internal/notify"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newWatchCmd() *cobra.Command {
	var configPath, schedule string
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run incremental sync cycles on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath, schedule, skipDiscovery)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "captrack.yaml", "path to config file")
	cmd.Flags().StringVar(&schedule, "schedule", "*/30 * * * *", "5-field cron expression")
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "skip the project discovery step")
	return cmd
}

func runWatch(cmd *cobra.Command, configPath, schedule string, skipDiscovery bool) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	log := logrus.StandardLogger()

	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	orch, notifiers, err := buildOrchestrator(cmd, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching on schedule %q\n", schedule)
	for {
		next := sched.Next(time.Now())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}

		result, runErr := orch.Run(ctx, agent.RunOptions{
			SyncType:      api.SyncIncremental,
			SkipDiscovery: skipDiscovery,
		})
		var resp *api.SyncResponse
		if result != nil {
			resp = result.Response
		}
		summary := notify.SyncSummary(cfg.Developer.Email, api.SyncIncremental, resp, runErr)
		notify.Broadcast(ctx, notifiers, summary, log)

		// A failed cycle leaves the checkpoint untouched; the next fire
		// retries the same window.
		if runErr != nil {
			log.WithError(runErr).Error("watch: sync cycle failed")
			continue
		}
		printRunResult(out, result)
	}
}

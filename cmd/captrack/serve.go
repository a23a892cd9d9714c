package main

import (
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scottschatz/software-capitalization-sub001/internal/config"
	"github.com/scottschatz/software-capitalization-sub001/internal/db"
	"github.com/scottschatz/software-capitalization-sub001/internal/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evidence store API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "captrack.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return store.Serve(ctx, store.ServerOpts{
		Store: store.New(gdb, logrus.StandardLogger()),
		Port:  cfg.Server.Port,
		Token: cfg.Store.Token,
		Out:   cmd.OutOrStdout(),
		Log:   logrus.StandardLogger(),
	})
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scottschatz/software-capitalization-sub001/internal/agent"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
)

func newLoginCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the evidence store API token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "captrack.yaml", "path to config file")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Fprint(out, "API token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	states := agent.NewStateStore(cfg.StateDir)
	state, err := states.Load()
	if err != nil {
		return err
	}
	state.APIToken = token
	if err := states.Save(state); err != nil {
		return err
	}

	fmt.Fprintf(out, "Token saved to %s\n", cfg.StateDir)
	return nil
}

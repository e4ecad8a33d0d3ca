package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lamim/irida-prep/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or complete the IRIDA config file",
		Long: `Resolve every IRIDA setting from the config file, the environment
(IRIDA_BASE_URL, IRIDA_CLIENT_ID, ...) or an interactive prompt, and save the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := a.loadSettings(cmd, configPath, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", configPath)
			fmt.Fprintf(out, "  base_url: %s\n", settings.BaseURL)
			fmt.Fprintf(out, "  client_id: %s\n", settings.ClientID)
			fmt.Fprintf(out, "  username: %s\n", settings.Username)
			fmt.Fprintf(out, "  timeout: %ds\n", settings.Timeout)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "Path to IRIDA config file")
	return cmd
}

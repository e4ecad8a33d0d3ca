package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamim/irida-prep/internal/config"
	"github.com/lamim/irida-prep/internal/manifest"
	"github.com/lamim/irida-prep/internal/project"
)

type prepareOptions struct {
	pid        string
	name       string
	pe         bool
	se         bool
	sort       bool
	noSort     bool
	pattern    string
	configPath string
}

func (a *app) prepareCommand() *cobra.Command {
	var opts prepareOptions

	cmd := &cobra.Command{
		Use:   "prepare [path]",
		Short: "Create the IRIDA project and write SampleList.csv",
		Long: `Prepare a folder of FASTQ files for upload:
1. Find or create the IRIDA project (skipped when --pid is given)
2. Write SampleList.csv into the folder`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrepare(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.pid, "pid", "", "IRIDA project ID")
	cmd.Flags().StringVar(&opts.name, "name", "", "IRIDA project name")
	cmd.Flags().BoolVar(&opts.pe, "pe", false, "Reads are paired-end")
	cmd.Flags().BoolVar(&opts.se, "se", false, "Reads are single-end (default)")
	cmd.Flags().BoolVar(&opts.sort, "sort", false, "Sort samples by their trailing number")
	cmd.Flags().BoolVar(&opts.noSort, "no-sort", false, "Keep samples in file system order (default)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", manifest.DefaultPairedPattern, "File name pattern of forward reads")
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to IRIDA config file")
	cmd.MarkFlagsMutuallyExclusive("pe", "se")
	cmd.MarkFlagsMutuallyExclusive("sort", "no-sort")

	return cmd
}

func (a *app) runPrepare(cmd *cobra.Command, args []string, opts prepareOptions) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	} else if wd, err := os.Getwd(); err == nil {
		path = wd
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to open run directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	logger := a.logger.With("command", "prepare")

	pid := opts.pid
	if pid == "" {
		name := opts.name
		if name == "" {
			name = project.NameFromPath(path, time.Now())
		}
		logger.Info("Project name", "name", name)

		settings, err := a.loadSettings(cmd, opts.configPath, logger)
		if err != nil {
			return err
		}
		resolver := project.NewResolver(a.newClient(settings, logger), logger)
		pid, err = resolver.ResolveOrCreate(cmd.Context(), name)
		if err != nil {
			return err
		}
	}

	paired := opts.pe && !opts.se
	sortSamples := opts.sort && !opts.noSort
	mopts := manifest.NewOptions(path, opts.pattern, paired, sortSamples, pid)

	out, m, err := manifest.NewBuilder(logger).Prepare(mopts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d samples for project %s to %s\n", len(m.Rows), pid, out)
	fmt.Fprintln(cmd.OutOrStdout(), "Finish!")
	return nil
}

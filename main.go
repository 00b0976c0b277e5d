package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Table source registrations.
	_ "github.com/ekaya-inc/datacheck/pkg/adapters/tablesource/file"
	_ "github.com/ekaya-inc/datacheck/pkg/adapters/tablesource/mssql"
	_ "github.com/ekaya-inc/datacheck/pkg/adapters/tablesource/postgres"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	datasetDir string
	outputDir  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "datacheck",
		Short:         "Data-quality validation for tabular datasets",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.datasetDir, "dataset-dir", "", "override dataset.dir")
	rootCmd.PersistentFlags().StringVar(&flags.outputDir, "output-dir", "", "override output.dir")

	rootCmd.AddCommand(
		newValidateCmd(flags),
		newCombinedCmd(flags),
		newProfileCmd(flags),
		newCatalogCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

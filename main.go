// main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/logging"
	"github.com/gewnthar/advsync/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath  string
		describe    bool
		feedversion bool
		identify    bool
		refresh     bool
		selftest    bool
	)

	cmd := &cobra.Command{
		Use:          "advsync",
		Short:        "Synchronize the local advisory store with the upstream feed",
		Long:         "advsync keeps a local, queryable advisory store consistent with the upstream feed:\nit mirrors the published corpus into a staging tree, guards the store schema\nversion, and applies advisories incrementally against a last-update watermark.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// The read-only queries print to stdout and never mutate
			// state, so they bypass the log file entirely.
			status := services.NewStatus(cfg)
			switch {
			case describe:
				fmt.Fprintln(cmd.OutOrStdout(), status.Describe())
				return nil
			case feedversion:
				fmt.Fprintln(cmd.OutOrStdout(), status.FeedVersion())
				return nil
			case identify:
				fmt.Fprintln(cmd.OutOrStdout(), status.Identify())
				return nil
			}

			if closer := logging.Setup(cfg.Log); closer != nil {
				defer closer.Close()
			}

			if selftest {
				return services.RunSelfTest(cfg)
			}

			err = services.NewSyncService(cfg).Run(refresh)
			if err != nil {
				log.Printf("FATAL: %v", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "settings file (default: probe standard locations)")
	cmd.Flags().BoolVar(&describe, "describe", false, "print feed name, vendor and home page")
	cmd.Flags().BoolVar(&feedversion, "feedversion", false, "print the installed feed version marker")
	cmd.Flags().BoolVar(&identify, "identify", false, "print the machine-readable identity line")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "apply updates from the existing staging tree, skipping transport")
	cmd.Flags().BoolVar(&selftest, "selftest", false, "check prerequisites only, without synchronizing")
	cmd.MarkFlagsMutuallyExclusive("describe", "feedversion", "identify", "refresh", "selftest")

	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"notifyrelay/internal/config"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

type rootFlags struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "notifyrelay",
		Short: "Relay desktop notifications to Telegram",
		Long: `notifyrelay watches the session bus for desktop notifications and
forwards the ones raised by a target application (Firefox by default) to a
Telegram chat, suppressing rapid repeats of the same sender and subject.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(f.envFiles...)
		},
	}
	root.SetVersionTemplate("notifyrelay {{.Version}}\n")

	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "./config.json", "config file (JSON or YAML); missing file means defaults")
	root.PersistentFlags().StringSliceVar(&f.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	root.AddCommand(
		newRunCmd(f),
		newReplayCmd(f),
		newHistoryCmd(f),
		newVersionCmd(),
	)
	return root
}

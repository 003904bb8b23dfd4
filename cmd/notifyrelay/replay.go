package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"notifyrelay/internal/app"
	"notifyrelay/internal/config"
	"notifyrelay/internal/transport/console"
)

func newReplayCmd(f *rootFlags) *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Feed a captured dbus-monitor transcript through the relay",
		Long: `Replay reads a dbus-monitor transcript (a file, or stdin when no file or
"-" is given) and runs it through the same parser, filter and debounce gate
as the live relay. Messages are printed instead of sent unless --send is set.`,
		Example: `  dbus-monitor interface='org.freedesktop.Notifications' > capture.txt
  notifyrelay replay capture.txt
  notifyrelay replay --send capture.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				in   io.Reader = cmd.InOrStdin()
				name           = "stdin"
			)
			if len(args) == 1 && args[0] != "-" {
				fh, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer fh.Close()
				in, name = fh, args[0]
			}

			opts := []app.Option{
				app.WithInput(name, in),
				app.WithWatch(false),
				app.WithSystemd(false),
			}
			if !send {
				opts = append(opts,
					app.WithSender(console.New(cmd.OutOrStdout())),
					app.WithJournal(false),
					app.WithFanout(false),
				)
			}
			a, err := app.NewApp(config.NewConfigManager(f.configPath), opts...)
			if err != nil {
				return err
			}
			if err := serve(cmd.Context(), a); err != nil {
				return err
			}

			st := a.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "lines=%d records=%d rejected=%d emitted=%d suppressed=%d failed=%d\n",
				st.Lines, st.Records, st.Rejected, st.Emitted, st.Suppressed, st.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "deliver messages to Telegram instead of printing them")
	return cmd
}

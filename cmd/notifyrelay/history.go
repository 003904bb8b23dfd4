package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notifyrelay/internal/config"
	"notifyrelay/internal/storage"
	logx "notifyrelay/pkg/logx"
)

func newHistoryCmd(f *rootFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently relayed alerts from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfigManager(f.configPath).Parse()
			if err != nil {
				return err
			}
			if cfg.Storage == nil {
				return errors.New("no alert journal configured (set storage.driver)")
			}
			st, err := storage.Open(storage.Config{
				Driver:      cfg.Storage.Driver,
				Path:        cfg.Storage.Path,
				BusyTimeout: cfg.BusyTimeout(),
			}, logx.Nop())
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("alert journal is disabled")
			}
			defer st.Close()

			entries, err := st.RecentAlerts(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tSTATUS\tSENDER\tSUBJECT")
			for _, e := range entries {
				status := "sent"
				if !e.Delivered {
					status = "failed: " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), status, e.Sender, e.Subject)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/LdDl/benthic-mot/config"
	"github.com/LdDl/benthic-mot/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if defaults {
				return config.WriteDefaults(cmd.OutOrStdout())
			}
			return config.Write(cmd.OutOrStdout(), a.settings)
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults instead of effective settings")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.settings.Output.Database == "" {
				return errors.New("database is not set (--db or output.database)")
			}
			st, err := store.Open(cmd.Context(), a.settings.Output.Database, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCLIP\tCREATED\tFRAMES\tTRACKS\tVALID")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", run.RunID, run.Clip, run.CreatedAt.Format(time.RFC3339), run.Frames, run.TotalTracks, run.ValidTracks)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("db", "", "SQLite database with stored runs")
	bindSetting(cmd.Flags(), "db", "output.database")
	return cmd
}

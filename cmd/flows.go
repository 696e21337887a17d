package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/store"
)

var flowsFlags struct {
	userID  int64
	status  string
	limit   int
	jsonOut bool
}

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List past flows from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		filter := store.FlowFilter{
			UserID: flowsFlags.userID,
			Limit:  flowsFlags.limit,
		}
		if flowsFlags.status != "" {
			fs := model.FlowStatus(flowsFlags.status)
			if !fs.Valid() {
				return eris.Errorf("unknown status %q", flowsFlags.status)
			}
			filter.Status = fs
		}

		flows, err := st.ListFlows(cmd.Context(), filter)
		if err != nil {
			return eris.Wrap(err, "list flows")
		}

		if flowsFlags.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(flows), "encode flows")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FLOW ID\tUSER\tSTATUS\tSOURCES\tUPDATED")
		for _, f := range flows {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d/%d\t%s\n",
				f.ID, f.UserID, f.Status,
				f.Stats.CompletedSources, f.Stats.TotalSources,
				f.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	flowsCmd.Flags().Int64Var(&flowsFlags.userID, "user", 0, "filter by user ID")
	flowsCmd.Flags().StringVar(&flowsFlags.status, "status", "", "filter by status (pending, running, completed, failed, stopped)")
	flowsCmd.Flags().IntVar(&flowsFlags.limit, "limit", 50, "maximum flows to list")
	flowsCmd.Flags().BoolVar(&flowsFlags.jsonOut, "json", false, "print as JSON")
	rootCmd.AddCommand(flowsCmd)
}

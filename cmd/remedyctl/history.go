package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/journal"
	"github.com/h1v3-io/remedyctl/internal/orchestrator"
	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		caseID string
		kind   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled case events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd, config.Overrides{})
			if err != nil {
				return err
			}
			if s.Journal == "" {
				return &config.Error{Msg: "journal is not configured (--journal or profile journal)"}
			}
			o, err := a.orchestrator(s, orchestrator.Config{})
			if err != nil {
				return err
			}

			events, err := o.History(cmd.Context(), journal.Filter{
				CaseID: caseID,
				Kind:   protocol.EventKind(kind),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tKIND\tCASE\tTICKET\tDETAIL")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(ev.CreatedAt), ev.Kind, ev.CaseID, ev.TicketID, ev.Detail)
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&caseID, "case", "", "only events of this case")
	f.StringVar(&kind, "kind", "", "only events of this kind (created, closed, failed)")
	f.IntVar(&limit, "limit", 20, "maximum number of events, 0 for all")
	return cmd
}

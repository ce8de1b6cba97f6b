package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/orchestrator"
)

func (a *app) listCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the cases that have an open ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "json" && output != "table" {
				return &config.Error{Msg: fmt.Sprintf("unknown output format %q (json, table)", output)}
			}
			s, err := a.settings(cmd, config.Overrides{})
			if err != nil {
				return err
			}
			if err := s.ValidateStore(); err != nil {
				return err
			}
			o, err := a.orchestrator(s, orchestrator.Config{})
			if err != nil {
				return err
			}

			cases, err := o.List(cmd.Context())
			if err != nil {
				return err
			}

			if output == "json" {
				data, err := json.MarshalIndent(cases, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, string(data))
				return nil
			}

			ids := make([]string, 0, len(cases))
			for id := range cases {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CASE\tTICKET")
			for _, id := range ids {
				fmt.Fprintf(w, "%s\t%s\n", id, cases[id].TicketID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or table")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/orchestrator"
)

func (a *app) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close CASE...",
		Short: "Forget the tickets of the given cases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			_, err = o.Close(cmd.Context(), args)
			return err
		},
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/h1v3-io/remedyctl/internal/config"
	"github.com/h1v3-io/remedyctl/internal/endpoint"
	"github.com/h1v3-io/remedyctl/internal/orchestrator"
	"github.com/h1v3-io/remedyctl/internal/template"
)

func (a *app) createCmd() *cobra.Command {
	var (
		url      string
		action   string
		caseVar  string
		tmpl     string
		vars     []string
		timeout  time.Duration
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "create --vars key:value [key:value...]",
		Short: "Create a ticket for a case unless one already exists",
		Example: `  remedyctl create --vars case_name:DISK-42 summary:"disk full on db01"
  remedyctl --profile prod create --template create.xml --vars case_name:DISK-42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o config.Overrides
			flags := cmd.Flags()
			if flags.Changed("url") {
				o.URL = &url
			}
			if flags.Changed("action") {
				o.Action = &action
			}
			if flags.Changed("template") {
				o.Template = &tmpl
			}
			if flags.Changed("timeout") {
				o.Timeout = &timeout
			}
			if flags.Changed("insecure-skip-verify") {
				o.InsecureSkipVerify = &insecure
			}

			s, err := a.settings(cmd, o)
			if err != nil {
				return err
			}
			if err := s.ValidateCreate(); err != nil {
				return err
			}

			// Positional arguments are accepted as further variables so that
			// "--vars a:1 b:2" works like a single list.
			parsed, err := template.ParseVars(append(vars, args...))
			if err != nil {
				return err
			}

			client, err := endpoint.New(s.URL, s.Action,
				endpoint.WithTimeout(s.Timeout),
				endpoint.WithInsecureSkipVerify(s.InsecureSkipVerify),
				endpoint.WithLogger(a.logger),
			)
			if err != nil {
				return &config.Error{Msg: "endpoint", Err: err}
			}

			orch, err := a.orchestrator(s, orchestrator.Config{
				Endpoint: client,
				Notifier: newLazyNotifier(s.Notify, a.logger),
			})
			if err != nil {
				return err
			}

			res, err := orch.Create(cmd.Context(), orchestrator.CreateRequest{
				CaseVar:      caseVar,
				TemplatePath: s.Template,
				Vars:         parsed,
			})
			if err != nil {
				return err
			}
			if !res.Skipped {
				fmt.Fprintf(a.stdout, "%s %s\n", res.CaseID, res.TicketID)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&url, "url", "", "endpoint URL")
	f.StringVar(&action, "action", "", "SOAP action")
	f.StringVar(&caseVar, "casevar", "case_name", "variable holding the case id")
	f.StringVar(&tmpl, "template", "", "XML request template")
	f.StringArrayVar(&vars, "vars", nil, "template variable as key:value (repeatable)")
	f.DurationVar(&timeout, "timeout", config.DefaultTimeout, "request timeout")
	f.BoolVar(&insecure, "insecure-skip-verify", false, "skip TLS certificate verification")
	return cmd
}

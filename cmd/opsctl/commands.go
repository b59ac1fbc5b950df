package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/akmatori/opsconsole/internal/api"
	"github.com/akmatori/opsconsole/internal/client"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/services"
	"github.com/akmatori/opsconsole/internal/utils"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME PASSWORD",
		Short: "Log in and print a bearer token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Post[api.LoginResponse](cmd.Context(), c, "/auth/login",
				map[string]string{"username": args[0], "password": args[1]})
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) {
				row(w, "USER", "EXPIRES", "TOKEN")
				row(w, resp.Data.User.Username, resp.Data.ExpiresAt.Format(time.RFC3339), resp.Data.Token)
			})
		},
	}
}

func newIncidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "List and act on incidents",
	}

	var status, severity, keyword, sortBy, sortOrder string
	var page, pageSize int
	list := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			q := url.Values{}
			setIf(q, "status", status)
			setIf(q, "severity", severity)
			setIf(q, "keyword", keyword)
			setIf(q, "sort_by", sortBy)
			setIf(q, "sort_order", sortOrder)
			if page > 0 {
				q.Set("page", strconv.Itoa(page))
			}
			if pageSize > 0 {
				q.Set("page_size", strconv.Itoa(pageSize))
			}
			resp, err := client.Get[api.Page[models.Incident]](cmd.Context(), c, "/incidents?"+q.Encode())
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) { incidentTable(w, resp.Data) })
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status")
	list.Flags().StringVar(&severity, "severity", "", "filter by severity")
	list.Flags().StringVar(&keyword, "keyword", "", "free-text filter")
	list.Flags().StringVar(&sortBy, "sort-by", "", "field to sort by")
	list.Flags().StringVar(&sortOrder, "sort-order", "", "asc or desc")
	list.Flags().IntVar(&page, "page", 0, "page number")
	list.Flags().IntVar(&pageSize, "page-size", 0, "page size")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Get[models.Incident](cmd.Context(), c, "/incidents/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, nil)
		},
	}

	var req services.IncidentActionRequest
	act := &cobra.Command{
		Use:   "act ID ACTION",
		Short: "Apply an action (acknowledge, resolve, assign, silence, unsilence, add_note)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			req.Action = args[1]
			resp, err := client.Post[models.Incident](cmd.Context(), c,
				"/incidents/"+url.PathEscape(args[0])+"/actions", req)
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) {
				row(w, "ID", "STATUS", "ASSIGNEE")
				row(w, resp.Data.ID, resp.Data.Status, resp.Data.Assignee)
			})
		},
	}
	act.Flags().StringVar(&req.Assignee, "assignee", "", "assignee for assign")
	act.Flags().StringVar(&req.Note, "note", "", "note for add_note")
	act.Flags().IntVar(&req.DurationMinutes, "minutes", 0, "silence duration in minutes")
	act.Flags().StringVar(&req.Comment, "comment", "", "comment recorded in history")

	cmd.AddCommand(list, get, act)
	return cmd
}

func incidentTable(w io.Writer, page api.Page[models.Incident]) {
	now := time.Now()
	row(w, "ID", "SEVERITY", "STATUS", "ASSIGNEE", "TRIGGERED", "SUMMARY")
	for _, inc := range page.Items {
		row(w, inc.ID, inc.Severity, inc.Status, orDash(inc.Assignee),
			utils.FormatAge(inc.TriggeredAt, now), utils.TruncateText(inc.Summary, 60))
	}
	fmt.Fprintf(w, "\npage %d, %d of %d shown\n", page.Page, len(page.Items), page.Total)
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"alert-rules"},
		Short:   "Inspect alert rules",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Get[api.Page[models.AlertRule]](cmd.Context(), c, "/alert-rules?page_size=200")
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) {
				row(w, "ID", "ENABLED", "TARGET", "NAME")
				for _, r := range resp.Data.Items {
					row(w, r.ID, r.Enabled, orDash(r.Target), r.Name)
				}
			})
		},
	}

	test := &cobra.Command{
		Use:   "test ID METRIC VALUE",
		Short: "Evaluate a rule against a metric value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Post[models.RuleTestResult](cmd.Context(), c,
				"/alert-rules/"+url.PathEscape(args[0])+"/test",
				services.RuleTestRequest{Metric: args[1], Value: value})
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) {
				row(w, "MATCHES", "SEVERITY", "PREVIEW")
				row(w, resp.Data.Matches, orDash(string(resp.Data.Severity)), resp.Data.Preview)
			})
		},
	}

	cmd.AddCommand(list, test)
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "GET any endpoint and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Get[interface{}](cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, nil)
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := client.Get[api.HealthResponse](cmd.Context(), c, "/health")
			if err != nil {
				return err
			}
			return printResult(cmd, resp.Data, func(w io.Writer) {
				row(w, "STATUS", "STORE", "CHECKED")
				row(w, resp.Data.Status, resp.Data.Store, resp.Data.Timestamp.Format(time.RFC3339))
			})
		},
	}
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

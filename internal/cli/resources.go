package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jrsteele09/go-admin-session/internal/utils"
	"github.com/jrsteele09/go-admin-session/resources"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/spf13/cobra"
)

// listCommand builds "<name> list" for one collection.
func listCommand[T any](a *app, name string, pick func(*resources.Service) *resources.Collection[T], header table.Row, row func(T) table.Row) *cobra.Command {
	list := &cobra.Command{
		Use:     "list",
		Short:   "List " + name,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				query.Set("status", status)
			}
			return a.withSession(cmd.Context(), true, func(store *session.Store, _ session.InitState) error {
				items, total, err := pick(resources.New(store.APIClient())).List(cmd.Context(), query)
				if err != nil {
					return fmt.Errorf("%s: %s", name, failure(store, err))
				}
				rows := make([]table.Row, 0, len(items))
				for _, item := range items {
					rows = append(rows, row(item))
				}
				return a.render(cmd.OutOrStdout(), map[string]any{name: items, "total": total}, header, rows)
			})
		},
	}
	list.Flags().String("status", "", "only items with this status")

	cmd := &cobra.Command{Use: name, Short: "Work with " + name}
	cmd.AddCommand(list)
	return cmd
}

func (a *app) clientsCommand() *cobra.Command {
	return listCommand(a, "clients",
		func(s *resources.Service) *resources.Collection[resources.Client] { return s.Clients },
		table.Row{"ID", "Name", "Email", "Company", "Status", "Created"},
		func(c resources.Client) table.Row {
			return table.Row{c.ID, truncate(c.Name, 30), c.Email, c.Company, c.Status, formatDate(c.CreatedAt)}
		})
}

func (a *app) tasksCommand() *cobra.Command {
	return listCommand(a, "tasks",
		func(s *resources.Service) *resources.Collection[resources.Task] { return s.Tasks },
		table.Row{"ID", "Client", "Title", "Status", "Priority", "Due", "Total"},
		func(t resources.Task) table.Row {
			return table.Row{t.ID, t.ClientID, truncate(t.Title, 40), t.Status, t.Priority, formatDate(utils.Value(t.DueDate)), fmt.Sprintf("%.2f", t.Total())}
		})
}

func (a *app) paymentsCommand() *cobra.Command {
	cmd := listCommand(a, "payments",
		func(s *resources.Service) *resources.Collection[resources.Payment] { return s.Payments },
		paymentHeader, paymentRow)

	cmd.AddCommand(&cobra.Command{
		Use:   "client <client-id>",
		Short: "List the payments of one client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid client id %q", args[0])
			}
			return a.withSession(cmd.Context(), true, func(store *session.Store, _ session.InitState) error {
				payments, err := resources.New(store.APIClient()).PaymentsByClient(cmd.Context(), clientID)
				if err != nil {
					return fmt.Errorf("payments: %s", failure(store, err))
				}
				rows := make([]table.Row, 0, len(payments))
				for _, p := range payments {
					rows = append(rows, paymentRow(p))
				}
				return a.render(cmd.OutOrStdout(), map[string]any{"payments": payments, "total": len(payments)}, paymentHeader, rows)
			})
		},
	})
	return cmd
}

var paymentHeader = table.Row{"ID", "Client", "Amount", "Status", "Due", "Overdue"}

func paymentRow(p resources.Payment) table.Row {
	return table.Row{p.ID, p.ClientID, fmt.Sprintf("%.2f %s", p.Amount, p.Currency), p.Status, formatDate(p.DueDate), display(p.Overdue(time.Now()))}
}

func (a *app) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show dashboard totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), true, func(store *session.Store, _ session.InitState) error {
				s, err := resources.New(store.APIClient()).Summary(cmd.Context())
				if err != nil {
					return fmt.Errorf("summary: %s", failure(store, err))
				}
				return a.renderFields(cmd.OutOrStdout(), []field{
					{"clients", "Clients", s.Clients},
					{"tasks", "Tasks", s.Tasks},
					{"payments", "Payments", s.Payments},
					{"pending_payments", "Pending payments", s.PendingPayments},
					{"pending_amount", "Pending amount", fmt.Sprintf("%.2f", s.PendingAmount)},
				})
			})
		},
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

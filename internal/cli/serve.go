package cli

import (
	"fmt"
	"net/url"

	"github.com/jrsteele09/go-admin-session/console"
	"github.com/jrsteele09/go-admin-session/devapi"
	"github.com/jrsteele09/go-admin-session/guard"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/jrsteele09/go-admin-session/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) consoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Serve the local admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.GetConsoleAddr()
			}

			return a.withSession(cmd.Context(), false, func(store *session.Store, state session.InitState) error {
				log.Info().Stringer("restore", state).Bool("authenticated", store.IsAuthenticated()).Msg("session restored")

				g := guard.NewFromConfig(store, cfg)
				c, err := console.New(store, g,
					console.WithDevelopment(cfg.GetEnv() == "DEV"),
					console.WithLoginRoute(cfg.GetLoginRoute()),
					console.WithLandingRoute(cfg.GetLandingRoute()),
				)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Console on http://%s\n", addr)
				return c.ListenAndServe(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default CONSOLE_ADDR)")
	return cmd
}

func (a *app) devAPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devapi",
		Short: "Serve an in-memory development API",
		Long: `Serve the admin REST API from memory with one seeded account. Point
API_BASE at it to try the client without a backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.GetDevAPIAddr()
			}
			name, _ := cmd.Flags().GetString("seed-name")
			email, _ := cmd.Flags().GetString("seed-email")
			password, _ := cmd.Flags().GetString("seed-password")
			plan, _ := cmd.Flags().GetString("seed-plan")

			basePath := "/api"
			if u, err := url.Parse(cfg.GetAPIBase()); err == nil && u.Path != "" {
				basePath = u.Path
			}

			api, err := devapi.New(
				devapi.WithBasePath(basePath),
				devapi.WithCors(cfg),
				devapi.WithLegacySingleToken(cfg.GetLegacySingleToken()),
			)
			if err != nil {
				return err
			}
			if _, err := api.AddAccount(name, email, password, users.PlanType(plan)); err != nil {
				return fmt.Errorf("seed account: %w", err)
			}

			if cfg.GetEnv() == "DEV" {
				for _, route := range api.Routes() {
					log.Debug().Msg(route)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Development API on http://%s%s (sign in as %s)\n", addr, basePath, email)
			return api.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default DEVAPI_ADDR)")
	cmd.Flags().String("seed-name", "Admin", "seeded account name")
	cmd.Flags().String("seed-email", "admin@example.com", "seeded account email")
	cmd.Flags().String("seed-password", "Admin1234", "seeded account password")
	cmd.Flags().String("seed-plan", string(users.PlanPro), "seeded account plan (free, pro, premium)")
	return cmd
}

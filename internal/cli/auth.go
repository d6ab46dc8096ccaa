package cli

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-admin-session/internal/utils"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/jrsteele09/go-admin-session/token"
	"github.com/jrsteele09/go-admin-session/users"
	"github.com/spf13/cobra"
)

func (a *app) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. Prompts for anything not given as a flag;
the password is read without echo when attached to a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			w := cmd.OutOrStdout()

			return a.withSession(cmd.Context(), false, func(store *session.Store, _ session.InitState) error {
				var err error
				if email, err = a.credential(w, email, "Email: ", false); err != nil {
					return err
				}
				if password, err = a.credential(w, password, "Password: ", true); err != nil {
					return err
				}
				if err := store.Login(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("login failed: %s", failure(store, err))
				}
				fmt.Fprintf(w, "✓ Signed in as %s\n", describe(store.User(), email))
				return nil
			})
		},
	}
	cmd.Flags().StringP("email", "e", "", "email address")
	cmd.Flags().StringP("password", "p", "", "password (not recommended, use the prompt)")
	return cmd
}

func (a *app) registerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			w := cmd.OutOrStdout()

			return a.withSession(cmd.Context(), false, func(store *session.Store, _ session.InitState) error {
				var err error
				if name, err = a.credential(w, name, "Name: ", false); err != nil {
					return err
				}
				if email, err = a.credential(w, email, "Email: ", false); err != nil {
					return err
				}
				if password, err = a.credential(w, password, "Password: ", true); err != nil {
					return err
				}
				if err := store.Register(cmd.Context(), name, email, password); err != nil {
					return fmt.Errorf("registration failed: %s", failure(store, err))
				}
				fmt.Fprintf(w, "✓ Registered and signed in as %s\n", describe(store.User(), email))
				return nil
			})
		},
	}
	cmd.Flags().StringP("name", "n", "", "full name")
	cmd.Flags().StringP("email", "e", "", "email address")
	cmd.Flags().StringP("password", "p", "", "password (not recommended, use the prompt)")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), false, func(store *session.Store, _ session.InitState) error {
				if err := store.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
				return nil
			})
		},
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), false, func(store *session.Store, state session.InitState) error {
				snap := store.Snapshot()
				fields := []field{
					{"authenticated", "Authenticated", snap.IsAuthenticated},
					{"restore", "Restore", state.String()},
					{"api_base", "API", store.APIBase()},
					{"storage", "Storage", a.config().GetStorageDriver()},
				}
				if snap.IsAuthenticated {
					fields = append(fields,
						field{"user", "User", describe(snap.User, "")},
						field{"plan", "Plan", string(snap.Plan())},
						field{"access_token", "Access token", utils.Mask(snap.AccessToken)},
						field{"token_state", "Token", store.Classify().String()},
						field{"expires_at", "Expires", formatTime(token.ExpiresAt(snap.AccessToken))},
						field{"issued_at", "Stored", formatTime(snap.IssuedAt)},
					)
				}
				if snap.Err != "" {
					fields = append(fields, field{"error", "Last error", snap.Err})
				}
				return a.renderFields(cmd.OutOrStdout(), fields)
			})
		},
	}
}

func (a *app) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the signed in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), true, func(store *session.Store, _ session.InitState) error {
				if err := store.FetchProfile(cmd.Context()); err != nil {
					return fmt.Errorf("profile: %s", failure(store, err))
				}
				u := store.User()
				return a.renderFields(cmd.OutOrStdout(), []field{
					{"id", "ID", u.ID},
					{"name", "Name", u.Name},
					{"email", "Email", u.Email},
					{"plan", "Plan", string(u.Plan)},
				})
			})
		},
	}
}

func (a *app) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), true, func(store *session.Store, _ session.InitState) error {
				if err := store.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("refresh: %s", failure(store, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Session renewed, token expires %s\n", formatTime(token.ExpiresAt(store.AccessToken())))
				return nil
			})
		},
	}
}

// failure prefers the message the server sent.
func failure(store *session.Store, err error) string {
	if msg := store.Err(); msg != "" {
		return msg
	}
	return err.Error()
}

func describe(u *users.Profile, fallback string) string {
	if u == nil {
		return fallback
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/auth"
	"github.com/costlens/costlens-cli/internal/session"
)

const loginTimeout = 5 * time.Minute

var loginScopes = []string{"openid", "email", "profile"}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		code        string
		redirectURI string
		noBrowser   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your identity provider",
		Long: `Sign in through the browser. A local callback server receives the
authorization code and exchanges it for a session token, which is stored in
the system keyring.

Use --code to exchange a code obtained elsewhere.`,
		Example: `  costlens auth login
  costlens auth login --no-browser
  costlens auth login --code 4/0Ad... --redirect-uri http://localhost:3000/callback`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, settings, err := newClientFactory(cmd).client()
			if err != nil {
				return err
			}
			// A fresh login is not a sign-out.
			client.Session.OnClear(nil)

			var user *session.UserProfile
			if code != "" {
				resp, err := client.Auth().ExchangeCode(cmdContext(cmd), code, redirectURI)
				if err != nil {
					return err
				}
				user = &resp.User
			} else {
				server, err := auth.NewLoginServer(auth.LoginConfig{
					AuthURL:   settings.AuthURL,
					ClientID:  settings.ClientID,
					Scopes:    loginScopes,
					Exchange:  exchangeWith(client),
					Out:       cmd.ErrOrStderr(),
					NoBrowser: noBrowser,
				})
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
				defer stop()
				ctx, cancel := context.WithTimeout(ctx, loginTimeout)
				defer cancel()

				result, err := server.Start(ctx)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				user = result.User
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"authenticated": true, "user": user})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayUser(user))
			return nil
		}),
	}

	cmd.Flags().StringVar(&code, "code", "", "Exchange this authorization code instead of opening a browser")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI the code was issued for (with --code)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")
	flagAlias(cmd.Flags(), "no-browser", "nb")

	return cmd
}

func exchangeWith(client *api.Client) auth.ExchangeFunc {
	return func(ctx context.Context, code, redirectURI string) (*session.UserProfile, error) {
		resp, err := client.Auth().ExchangeCode(ctx, code, redirectURI)
		if err != nil {
			return nil, err
		}
		user := resp.User
		return &user, nil
	}
}

func newAuthStatusCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in user",
		Long:  "Show the stored session. Unless --offline is set the token is checked against the API; an expired token is cleared.",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd)
			if err != nil {
				return err
			}

			if !client.Session.IsAuthenticated() {
				if isJSON(cmd) {
					return printJSON(cmd, map[string]any{"authenticated": false})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}

			user := client.Session.User()
			if !offline {
				me, err := client.Auth().Me(cmdContext(cmd))
				if err != nil {
					return err
				}
				user = me
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"authenticated": true,
					"api_url":       client.BaseURL,
					"user":          user,
				})
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Logged in as %s\n", displayUser(user))
			_, _ = fmt.Fprintf(out, "API: %s\n", client.BaseURL)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Only show the stored session")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd)
			if err != nil {
				return err
			}
			client.Session.OnClear(nil)
			cleared := client.Auth().Logout()

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"logged_out": cleared})
			}
			if cleared {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			}
			return nil
		}),
	}
}

func displayUser(user *session.UserProfile) string {
	if user == nil {
		return "(unknown user)"
	}
	switch {
	case user.Name != "" && user.Email != "":
		return fmt.Sprintf("%s <%s>", user.Name, user.Email)
	case user.Email != "":
		return user.Email
	case user.Name != "":
		return user.Name
	default:
		return user.ID
	}
}

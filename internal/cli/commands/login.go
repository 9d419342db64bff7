package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reelfolio/reelfolio/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a Reelfolio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/auth", func(ctx context.Context, app *App) error {
				return runLogin(ctx, app, email, password)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set REELFOLIO_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set REELFOLIO_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, app *App, email, password string) error {
	if email == "" {
		email = os.Getenv("REELFOLIO_EMAIL")
	}
	if password == "" {
		password = os.Getenv("REELFOLIO_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or REELFOLIO_EMAIL env var)")
	}

	if password == "" {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(app.Out, "Signing in to %s...\n", app.API.BaseURL())

	if err := app.Session.SignIn(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", describe(err))
	}
	if err := app.Session.Settle(ctx); err != nil {
		return err
	}

	snap := app.Session.Snapshot()
	fmt.Fprintln(app.Out, "✓ Login successful!")
	fmt.Fprintf(app.Out, "  User: %s\n", snap.User.Email)
	if snap.State() == session.StateAdmin {
		fmt.Fprintln(app.Out, "  Role: Admin")
	}
	return nil
}

func promptPassword() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or REELFOLIO_PASSWORD env var)")
	}
	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// NewSignupCmd creates the signup command
func NewSignupCmd(env *Env) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/auth", func(ctx context.Context, app *App) error {
				if email == "" {
					return fmt.Errorf("email is required (use --email flag)")
				}
				if password == "" {
					var err error
					if password, err = promptPassword(); err != nil {
						return err
					}
				}
				if err := app.Session.SignUp(ctx, email, password, name); err != nil {
					return fmt.Errorf("signup failed: %w", describe(err))
				}
				fmt.Fprintln(app.Out, "✓ Account created!")
				fmt.Fprintln(app.Out, "  Check your email for the verification link, then run 'reelfolio verify <token>'.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Confirm your email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/auth", func(ctx context.Context, app *App) error {
				if err := app.API.Verify(ctx, args[0]); err != nil {
					return fmt.Errorf("verification failed: %w", describe(err))
				}
				fmt.Fprintln(app.Out, "✓ Email confirmed! You can now run 'reelfolio login'.")
				return nil
			})
		},
	}
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "", func(ctx context.Context, app *App) error {
				if !app.Session.Snapshot().Authenticated() {
					fmt.Fprintln(app.Out, "Not signed in.")
					return nil
				}
				if err := app.Session.SignOut(ctx); err != nil {
					// Local session is gone regardless
					env.Logger.Warn().Err(err).Msg("Server sign-out failed")
				}
				fmt.Fprintln(app.Out, "✓ Signed out.")
				return nil
			})
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and selected profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "", func(ctx context.Context, app *App) error {
				snap := app.Session.Snapshot()
				if !snap.Authenticated() {
					fmt.Fprintln(app.Out, "Not signed in.")
				} else {
					fmt.Fprintf(app.Out, "User: %s\n", snap.User.Email)
					fmt.Fprintf(app.Out, "Role: %s\n", snap.State())
				}
				if p, ok := app.Profiles.Selected(); ok {
					fmt.Fprintf(app.Out, "Profile: %s\n", p.Info().Name)
				}
				fmt.Fprintf(app.Out, "Server: %s\n", app.API.BaseURL())
				return nil
			})
		},
	}
}

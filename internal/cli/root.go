package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cliauth "github.com/reelfolio/reelfolio/internal/cli/auth"
	"github.com/reelfolio/reelfolio/internal/cli/commands"
	"github.com/reelfolio/reelfolio/internal/kvstore"
	"github.com/reelfolio/reelfolio/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd wires every subcommand against env
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reelfolio",
		Short: "Reelfolio - a streaming-style developer portfolio",
		Long: `Reelfolio CLI - Browse and manage a portfolio presented like a streaming catalogue.

Anyone can browse projects, categories and the about page. Signed-in admins
can manage content with the 'admin' commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	env.BindFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "reelfolio version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewSignupCmd(env))
	rootCmd.AddCommand(commands.NewVerifyCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewProfileCmd(env))
	rootCmd.AddCommand(commands.NewProjectsCmd(env))
	rootCmd.AddCommand(commands.NewProjectCmd(env))
	rootCmd.AddCommand(commands.NewSearchCmd(env))
	rootCmd.AddCommand(commands.NewCategoriesCmd(env))
	rootCmd.AddCommand(commands.NewBannersCmd(env))
	rootCmd.AddCommand(commands.NewAboutCmd(env))
	rootCmd.AddCommand(commands.NewAdminCmd(env))
	rootCmd.AddCommand(commands.NewServerCmd(env))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	statePath, err := kvstore.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	level := zerolog.WarnLevel
	if os.Getenv("REELFOLIO_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	env := &commands.Env{
		Tokens: cliauth.Default,
		State:  kvstore.NewFileStore(statePath),
		Out:    os.Stdout,
		Logger: logger.New(os.Stderr, "console").Level(level),
	}

	if err := NewRootCmd(env).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

package commands

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewServerCmd creates the server command
func NewServerCmd(env *Env) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "server [url]",
		Short: "Show or set the portfolio server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				if err := env.State.Remove(serverKey); err != nil {
					return fmt.Errorf("failed to reset server: %w", err)
				}
				fmt.Fprintf(env.Out, "✓ Server reset to %s\n", defaultServer)
				return nil
			}

			if len(args) == 0 {
				fmt.Fprintln(env.Out, env.ResolveServer())
				return nil
			}

			server := strings.TrimRight(args[0], "/")
			u, err := url.Parse(server)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", args[0])
			}

			// Reachability check only; the stored token is per server
			api := clientFor(env, server)
			if err := api.Health(commandContext(cmd)); err != nil {
				fmt.Fprintf(env.Out, "Warning: %s is not reachable: %v\n", server, err)
			}

			if err := env.State.Set(serverKey, server); err != nil {
				return fmt.Errorf("failed to save server: %w", err)
			}
			fmt.Fprintf(env.Out, "✓ Server set to %s\n", server)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the stored server")

	return cmd
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cliauth "github.com/reelfolio/reelfolio/internal/cli/auth"
	"github.com/reelfolio/reelfolio/internal/cli/client"
	"github.com/reelfolio/reelfolio/internal/guard"
	"github.com/reelfolio/reelfolio/internal/kvstore"
	"github.com/reelfolio/reelfolio/internal/profile"
	"github.com/reelfolio/reelfolio/internal/session"
)

const (
	defaultServer = "http://localhost:8080"
	// serverKey stores the server chosen with 'reelfolio server'
	serverKey = "server"
)

var (
	ErrSignInRequired   = errors.New("sign in required. Please run 'reelfolio login' first")
	ErrNotAuthorized    = errors.New("admin access required")
	ErrSessionUnsettled = errors.New("session is still loading")
)

// Env holds the process-level dependencies of every command
type Env struct {
	Tokens     cliauth.TokenStore
	State      kvstore.Store
	Out        io.Writer
	Logger     zerolog.Logger
	HTTPClient *http.Client

	// set by the persistent --server flag
	serverFlag string
}

// App is one command invocation's view of the portfolio: an API client and
// a settled session
type App struct {
	API      *client.Client
	Auth     *client.AuthClient
	Session  *session.Manager
	Profiles *profile.Store
	Out      io.Writer
}

// BindFlags registers the persistent flags Env reads
func (e *Env) BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&e.serverFlag, "server", "", "Portfolio server URL (overrides the stored choice)")
}

// ResolveServer picks the server by priority: --server flag,
// REELFOLIO_SERVER, the stored choice, then the local default
func (e *Env) ResolveServer() string {
	if e.serverFlag != "" {
		return strings.TrimRight(e.serverFlag, "/")
	}
	if v := os.Getenv("REELFOLIO_SERVER"); v != "" {
		return strings.TrimRight(v, "/")
	}
	if v, err := e.State.Get(serverKey); err == nil && v != "" {
		return v
	}
	return defaultServer
}

// Open restores the stored session and waits until it has settled,
// including the admin role lookup
func (e *Env) Open(ctx context.Context) (*App, error) {
	api := clientFor(e, e.ResolveServer())

	authClient := client.NewAuthClient(api, e.Tokens, e.Logger)
	manager := session.NewManager(authClient, authClient, e.Logger)

	if err := manager.Start(ctx); err != nil {
		// Degraded to anonymous, public pages still work
		e.Logger.Debug().Err(err).Msg("Continuing without a restored session")
	}
	if err := manager.Settle(ctx); err != nil {
		manager.Close()
		return nil, err
	}

	return &App{
		API:      api,
		Auth:     authClient,
		Session:  manager,
		Profiles: profile.NewStore(e.State, e.Logger),
		Out:      e.Out,
	}, nil
}

// Close releases the session manager
func (a *App) Close() {
	a.Session.Close()
}

// Require applies the route guard for path to the current session
func (a *App) Require(path string) error {
	return requireFor(a.Session.Snapshot(), path)
}

func requireFor(snap session.Snapshot, path string) error {
	decision := guard.Navigate(snap, path)
	switch decision.Outcome {
	case guard.RenderContent:
		return nil
	case guard.RenderLoading:
		return ErrSessionUnsettled
	}
	if decision.Target == guard.SignInPath {
		return ErrSignInRequired
	}
	return ErrNotAuthorized
}

// withApp opens an App, checks the route guard for path and runs fn
func withApp(env *Env, cmd *cobra.Command, path string, fn func(ctx context.Context, app *App) error) error {
	ctx := commandContext(cmd)

	app, err := env.Open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if path != "" {
		if err := app.Require(path); err != nil {
			return err
		}
	}
	return fn(ctx, app)
}

func clientFor(env *Env, server string) *client.Client {
	api := client.New(server)
	if env.HTTPClient != nil {
		api.SetHTTPClient(env.HTTPClient)
	}
	return api
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s", apiErr.Message)
	}
	return err
}

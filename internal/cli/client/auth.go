package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelfolio/reelfolio/internal/auth"
	cliauth "github.com/reelfolio/reelfolio/internal/cli/auth"
	"github.com/reelfolio/reelfolio/internal/session"
)

// Error codes returned by the auth endpoints
const (
	codeInvalidCredentials = "invalid_credentials"
	codeEmailNotConfirmed  = "email_not_confirmed"
	codeEmailTaken         = "email_taken"
	codeWeakPassword       = "weak_password"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email not confirmed, check your inbox for the verification link")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrNoSession          = errors.New("no active session")
)

// DefaultRefreshWindow is how close to expiry a restored token gets refreshed
const DefaultRefreshWindow = time.Hour

// AuthClient is the auth service as seen by the session manager. It keeps
// the token in a TokenStore and emits a notification for every session change.
type AuthClient struct {
	api    *Client
	tokens cliauth.TokenStore
	logger zerolog.Logger

	RefreshWindow time.Duration
	now           func() time.Time

	mu       sync.Mutex
	handlers map[int]func(session.AuthEvent)
	nextID   int
	userID   string

	// held while notifying so handlers see events in emission order
	emitMu sync.Mutex
}

// NewAuthClient creates an auth client for api's server
func NewAuthClient(api *Client, tokens cliauth.TokenStore, logger zerolog.Logger) *AuthClient {
	return &AuthClient{
		api:           api,
		tokens:        tokens,
		logger:        logger.With().Str("component", "auth_client").Logger(),
		RefreshWindow: DefaultRefreshWindow,
		now:           time.Now,
		handlers:      make(map[int]func(session.AuthEvent)),
	}
}

// OnAuthStateChange registers handler for session notifications
func (a *AuthClient) OnAuthStateChange(handler func(session.AuthEvent)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.handlers[id] = handler
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.handlers, id)
			a.mu.Unlock()
		})
	}
}

func (a *AuthClient) emit(kind session.EventKind, user *User) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	ev := session.AuthEvent{Kind: kind}
	a.mu.Lock()
	if user != nil {
		ev.User = &session.User{ID: user.ID, Email: user.Email}
		a.userID = user.ID
	} else {
		a.userID = ""
	}
	ids := make([]int, 0, len(a.handlers))
	for id := range a.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(session.AuthEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, a.handlers[id])
	}
	a.mu.Unlock()

	a.logger.Debug().Str("event", string(kind)).Bool("has_user", user != nil).Msg("Emitting auth event")
	for _, h := range handlers {
		h(ev)
	}
}

func (a *AuthClient) storeToken(token string) {
	a.api.SetToken(token)
	if err := a.tokens.SaveToken(a.api.BaseURL(), token); err != nil {
		// The session still works for this process
		a.logger.Warn().Err(err).Msg("Failed to persist token")
	}
}

func (a *AuthClient) clearToken() {
	a.api.SetToken("")
	if err := a.tokens.DeleteToken(a.api.BaseURL()); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to delete stored token")
	}
}

// RestoreSession loads the stored token and emits INITIAL_SESSION. Tokens
// close to expiry are refreshed first; expired or rejected tokens are
// discarded and the session starts anonymous. Only transport failures are
// returned.
func (a *AuthClient) RestoreSession(ctx context.Context) error {
	token, err := a.tokens.LoadToken(a.api.BaseURL())
	if err != nil {
		if !errors.Is(err, cliauth.ErrNotAuthenticated) {
			a.logger.Warn().Err(err).Msg("Failed to load stored token")
		}
		a.emit(session.EventInitialSession, nil)
		return nil
	}

	expiresAt, err := auth.PeekExpiry(token)
	if err != nil || !a.now().Before(expiresAt) {
		a.logger.Debug().Err(err).Msg("Stored token unusable, discarding")
		a.clearToken()
		a.emit(session.EventInitialSession, nil)
		return nil
	}
	a.api.SetToken(token)

	refreshed := false
	if expiresAt.Sub(a.now()) < a.RefreshWindow {
		resp, err := a.api.Refresh(ctx)
		switch {
		case err == nil:
			a.storeToken(resp.Token)
			refreshed = true
		case StatusOf(err) == http.StatusUnauthorized:
			a.clearToken()
			a.emit(session.EventInitialSession, nil)
			return nil
		default:
			a.logger.Warn().Err(err).Msg("Token refresh failed, using current token")
		}
	}

	user, err := a.api.Me(ctx)
	if err != nil {
		if StatusOf(err) == http.StatusUnauthorized {
			a.clearToken()
			a.emit(session.EventInitialSession, nil)
			return nil
		}
		a.api.SetToken("")
		return fmt.Errorf("failed to load current user: %w", err)
	}

	a.emit(session.EventInitialSession, user)
	if refreshed {
		a.emit(session.EventTokenRefreshed, user)
	}
	return nil
}

// SignIn exchanges credentials for a token and emits SIGNED_IN
func (a *AuthClient) SignIn(ctx context.Context, email, password string) error {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return mapAuthError(err)
	}

	a.storeToken(resp.Token)
	a.emit(session.EventSignedIn, &resp.User)
	return nil
}

// SignUp creates an account. No notification follows: the account stays
// signed out until its email is verified.
func (a *AuthClient) SignUp(ctx context.Context, email, password, displayName string) error {
	if err := a.api.Signup(ctx, email, password, displayName); err != nil {
		return mapAuthError(err)
	}
	return nil
}

// SignOut revokes the token on the server, forgets it locally and emits
// SIGNED_OUT. The local session ends even when the server call fails.
func (a *AuthClient) SignOut(ctx context.Context) error {
	var err error
	if a.api.Token() != "" {
		err = a.api.Logout(ctx)
	}
	a.clearToken()
	a.emit(session.EventSignedOut, nil)
	return err
}

// Refresh exchanges the current token for a fresh one and emits TOKEN_REFRESHED
func (a *AuthClient) Refresh(ctx context.Context) error {
	if a.api.Token() == "" {
		return ErrNoSession
	}
	resp, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}
	a.storeToken(resp.Token)
	a.emit(session.EventTokenRefreshed, &resp.User)
	return nil
}

// IsAdmin asks the server whether the signed-in user holds the admin role.
// The server answers for the token's owner only, so a lookup for anyone else
// fails.
func (a *AuthClient) IsAdmin(ctx context.Context, userID string) (bool, error) {
	a.mu.Lock()
	current := a.userID
	a.mu.Unlock()
	if current != userID {
		return false, fmt.Errorf("role lookup for %s but signed in as %q", userID, current)
	}
	return a.api.HasRole(ctx, "admin")
}

func mapAuthError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case codeInvalidCredentials:
		return ErrInvalidCredentials
	case codeEmailNotConfirmed:
		return ErrEmailNotConfirmed
	case codeEmailTaken:
		return ErrEmailTaken
	case codeWeakPassword:
		return ErrWeakPassword
	}
	return err
}

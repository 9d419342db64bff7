// Package session owns the client-side view of who is signed in and whether
// they are an admin. A single Manager per process is the only writer; every
// other component reads Snapshot copies.
package session

import (
	"context"
)

// User is the authenticated identity
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Snapshot is an immutable copy of the session state
type Snapshot struct {
	User      *User
	IsAdmin   bool
	IsLoading bool
}

// State names the position of a snapshot in the session state machine
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
	StateAdmin
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateAdmin:
		return "admin"
	}
	return "unknown"
}

// State derives the state machine position
func (s Snapshot) State() State {
	switch {
	case s.IsLoading:
		return StateLoading
	case s.User == nil:
		return StateAnonymous
	case s.IsAdmin:
		return StateAdmin
	default:
		return StateAuthenticated
	}
}

// Authenticated reports whether a user is present
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// EventKind identifies an auth state notification
type EventKind string

const (
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// AuthEvent is one session-change notification. User is nil when there is
// no session.
type AuthEvent struct {
	Kind EventKind
	User *User
}

// AuthBackend is the remote auth service as seen by the manager
type AuthBackend interface {
	// OnAuthStateChange registers a handler and returns its unsubscribe func.
	// Handlers are called in emission order.
	OnAuthStateChange(handler func(AuthEvent)) (unsubscribe func())
	// RestoreSession emits exactly one INITIAL_SESSION notification, with or
	// without a user.
	RestoreSession(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, displayName string) error
	SignOut(ctx context.Context) error
}

// RoleLookup answers whether a user holds the admin role
type RoleLookup interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelfolio/reelfolio/internal/assert"
)

var (
	ErrSignInInProgress = errors.New("a sign-in attempt is already in progress")
	ErrManagerClosed    = errors.New("session manager closed")
)

const (
	defaultLookupTimeout = 10 * time.Second
	workQueueSize        = 64
)

// Manager is the single source of truth for the authenticated identity and
// the derived admin flag.
//
// All state changes run on one goroutine in the order they were queued, so
// notifications are applied in delivery order. Role lookups run on their own
// goroutines and post results back to the loop, where a result is dropped if
// the session has moved on since the lookup started.
type Manager struct {
	backend AuthBackend
	roles   RoleLookup
	logger  zerolog.Logger

	LookupTimeout time.Duration

	mu          sync.RWMutex
	snap        Snapshot
	unsubscribe func()

	// loop-owned
	generation     uint64
	pendingLookups int
	settleWaiters  []chan struct{}
	subscribers    map[int]func(Snapshot)
	nextSubscriber int

	work      chan func()
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	signingIn atomic.Bool
}

// NewManager creates a manager in the Loading state and starts its loop.
// Call Start to subscribe to the backend and Close to release it.
func NewManager(backend AuthBackend, roles RoleLookup, logger zerolog.Logger) *Manager {
	m := &Manager{
		backend:       backend,
		roles:         roles,
		logger:        logger.With().Str("component", "session_manager").Logger(),
		LookupTimeout: defaultLookupTimeout,
		snap:          Snapshot{IsLoading: true},
		subscribers:   make(map[int]func(Snapshot)),
		work:          make(chan func(), workQueueSize),
		done:          make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	for {
		select {
		case fn := <-m.work:
			fn()
		case <-m.done:
			return
		}
	}
}

// enqueue schedules fn on the loop. It reports false once the manager is closed.
func (m *Manager) enqueue(fn func()) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.work <- fn:
		return true
	case <-m.done:
		return false
	}
}

// Start subscribes to backend notifications and restores any persisted
// session. Only the first call has any effect. If restoring fails the session
// settles as anonymous and the error is returned for logging. A closed manager
// never subscribes and returns ErrManagerClosed.
func (m *Manager) Start(ctx context.Context) error {
	var err error
	m.startOnce.Do(func() {
		if !m.subscribe() {
			err = ErrManagerClosed
			return
		}

		if restoreErr := m.backend.RestoreSession(ctx); restoreErr != nil {
			m.logger.Warn().Err(restoreErr).Msg("Failed to restore session, continuing anonymously")
			m.handleEvent(AuthEvent{Kind: EventInitialSession})
			err = fmt.Errorf("restore session: %w", restoreErr)
		}
	})
	return err
}

// subscribe registers with the backend unless Close already ran. Close takes
// the same lock, so the registration is always undone on teardown.
func (m *Manager) subscribe() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return false
	default:
	}
	m.unsubscribe = m.backend.OnAuthStateChange(m.handleEvent)
	return true
}

// Close unsubscribes from the backend and stops the loop. Pending role
// lookups finish in the background and their results are discarded.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		close(m.done)
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		m.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
	})
}

// Snapshot returns the most recently committed session state
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Subscribe registers fn to receive every committed snapshot. fn runs on the
// manager loop and must not block or call back into the manager.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	idCh := make(chan int, 1)
	if !m.enqueue(func() {
		id := m.nextSubscriber
		m.nextSubscriber++
		m.subscribers[id] = fn
		idCh <- id
	}) {
		return func() {}
	}

	var id int
	select {
	case id = <-idCh:
	case <-m.done:
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.enqueue(func() { delete(m.subscribers, id) })
		})
	}
}

// SignIn exchanges credentials with the backend. The session itself changes
// only through the resulting notification. A second attempt while one is in
// flight fails fast with ErrSignInInProgress.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if !m.signingIn.CompareAndSwap(false, true) {
		return ErrSignInInProgress
	}
	defer m.signingIn.Store(false)

	if err := m.backend.SignIn(ctx, email, password); err != nil {
		m.logger.Debug().Err(err).Str("email", email).Msg("Sign-in failed")
		return err
	}
	return nil
}

// SignUp requests account creation. The new account stays signed out until
// its email address is verified.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) error {
	if err := m.backend.SignUp(ctx, email, password, displayName); err != nil {
		m.logger.Debug().Err(err).Str("email", email).Msg("Sign-up failed")
		return err
	}
	return nil
}

// SignOut invalidates the backend session and then resets to anonymous
// regardless of the outcome. The backend error is returned for logging only;
// the local session is reset either way.
func (m *Manager) SignOut(ctx context.Context) error {
	backendErr := m.backend.SignOut(ctx)
	if backendErr != nil {
		m.logger.Warn().Err(backendErr).Msg("Backend sign-out failed, resetting local session anyway")
	}

	applied := make(chan struct{})
	if m.enqueue(func() {
		m.resetAnonymous()
		close(applied)
	}) {
		select {
		case <-applied:
		case <-m.done:
		}
	}

	// Closed managers still honour the reset
	select {
	case <-m.done:
		m.mu.Lock()
		m.snap = Snapshot{}
		m.mu.Unlock()
	default:
	}

	return backendErr
}

// Settle blocks until every queued notification has been applied and no role
// lookup is outstanding.
func (m *Manager) Settle(ctx context.Context) error {
	ch := make(chan struct{})
	if !m.enqueue(func() {
		if m.pendingLookups == 0 {
			close(ch)
			return
		}
		m.settleWaiters = append(m.settleWaiters, ch)
	}) {
		return ErrManagerClosed
	}

	select {
	case <-ch:
		return nil
	case <-m.done:
		return ErrManagerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) handleEvent(ev AuthEvent) {
	if !m.enqueue(func() { m.apply(ev) }) {
		m.logger.Debug().Str("event", string(ev.Kind)).Msg("Dropping notification after close")
	}
}

// apply runs on the loop
func (m *Manager) apply(ev AuthEvent) {
	m.logger.Debug().Str("event", string(ev.Kind)).Bool("has_user", ev.User != nil).Msg("Auth state changed")

	if ev.User == nil {
		m.resetAnonymous()
		return
	}

	user := *ev.User
	prev := m.Snapshot()

	// Same identity keeps its known admin flag until the new lookup answers
	isAdmin := false
	if prev.User != nil && prev.User.ID == user.ID {
		isAdmin = prev.IsAdmin
	}

	m.generation++
	m.commit(Snapshot{User: &user, IsAdmin: isAdmin})
	m.startLookup(m.generation, user.ID)
}

// resetAnonymous runs on the loop
func (m *Manager) resetAnonymous() {
	m.generation++
	m.commit(Snapshot{})
}

func (m *Manager) startLookup(generation uint64, userID string) {
	m.pendingLookups++

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.LookupTimeout)
		defer cancel()

		isAdmin, err := m.roles.IsAdmin(ctx, userID)
		if err != nil {
			m.logger.Warn().Err(err).Str("user_id", userID).Msg("Role lookup failed, treating user as non-admin")
			isAdmin = false
		}

		m.enqueue(func() { m.applyRole(generation, userID, isAdmin) })
	}()
}

// applyRole runs on the loop
func (m *Manager) applyRole(generation uint64, userID string, isAdmin bool) {
	defer m.lookupFinished()

	current := m.Snapshot()
	if generation != m.generation || current.User == nil || current.User.ID != userID {
		m.logger.Debug().
			Str("user_id", userID).
			Uint64("lookup_generation", generation).
			Uint64("current_generation", m.generation).
			Msg("Discarding stale role lookup")
		return
	}

	if current.IsAdmin == isAdmin {
		return
	}
	current.IsAdmin = isAdmin
	m.commit(current)
}

func (m *Manager) lookupFinished() {
	m.pendingLookups--
	if m.pendingLookups > 0 {
		return
	}
	for _, ch := range m.settleWaiters {
		close(ch)
	}
	m.settleWaiters = nil
}

// commit runs on the loop. Every commit leaves Loading for good.
func (m *Manager) commit(next Snapshot) {
	next.IsLoading = false
	assert.True(!next.IsAdmin || next.User != nil, "admin flag set without a user")

	m.mu.Lock()
	m.snap = next
	m.mu.Unlock()

	for _, fn := range m.subscribers {
		fn(next)
	}
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reelfolio/reelfolio/internal/auth"
	cliauth "github.com/reelfolio/reelfolio/internal/cli/auth"
	"github.com/reelfolio/reelfolio/internal/config"
	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/server"
	"github.com/reelfolio/reelfolio/internal/session"
	"github.com/reelfolio/reelfolio/internal/storage"
)

type nopEnqueuer struct{}

func (nopEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

type testBackend struct {
	url string
	db  *gorm.DB
}

func newTestBackend(t *testing.T, ttl time.Duration) *testBackend {
	t.Helper()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	store, err := storage.NewService(filepath.Join(dir, "storage"), "http://localhost", zerolog.Nop())
	require.NoError(t, err)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{CORSOrigins: []string{"http://localhost:5173"}},
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: ttl},
	}
	srv, err := server.NewWithDeps(cfg, zerolog.Nop(), "test", db, nopEnqueuer{}, store)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	b := &testBackend{url: ts.URL, db: db}
	b.createUser(t, "admin@example.com", "correct-password", true, true)
	b.createUser(t, "viewer@example.com", "viewer-password", true, false)
	b.createUser(t, "pending@example.com", "pending-password", false, false)
	return b
}

func (b *testBackend) createUser(t *testing.T, email, password string, verified, admin bool) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, PasswordHash: hash, EmailVerified: verified}
	require.NoError(t, b.db.Create(user).Error)
	if admin {
		require.NoError(t, b.db.Create(&models.UserRole{UserID: user.ID, Role: models.RoleAdmin}).Error)
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []session.AuthEvent
}

func (l *eventLog) record(ev session.AuthEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []session.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]session.EventKind, len(l.events))
	for i, ev := range l.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (l *eventLog) last() session.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func newAuthClient(t *testing.T, b *testBackend, tokens cliauth.TokenStore) (*AuthClient, *eventLog) {
	t.Helper()
	ac := NewAuthClient(New(b.url), tokens, zerolog.Nop())
	log := &eventLog{}
	unsubscribe := ac.OnAuthStateChange(log.record)
	t.Cleanup(unsubscribe)
	return ac, log
}

func TestSignIn(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	tokens := cliauth.NewMemoryTokenStore()
	ac, log := newAuthClient(t, b, tokens)
	ctx := context.Background()

	require.NoError(t, ac.SignIn(ctx, "viewer@example.com", "viewer-password"))

	assert.Equal(t, []session.EventKind{session.EventSignedIn}, log.kinds())
	require.NotNil(t, log.last().User)
	assert.Equal(t, "viewer@example.com", log.last().User.Email)

	stored, err := tokens.LoadToken(b.url)
	require.NoError(t, err)
	assert.Equal(t, ac.api.Token(), stored)
}

func TestSignIn_Errors(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	ac, log := newAuthClient(t, b, cliauth.NewMemoryTokenStore())
	ctx := context.Background()

	err := ac.SignIn(ctx, "admin@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = ac.SignIn(ctx, "pending@example.com", "pending-password")
	require.ErrorIs(t, err, ErrEmailNotConfirmed)

	assert.Empty(t, log.kinds(), "failed sign-ins emit nothing")
}

func TestSignUp(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	ac, log := newAuthClient(t, b, cliauth.NewMemoryTokenStore())
	ctx := context.Background()

	require.NoError(t, ac.SignUp(ctx, "new@example.com", "secret1", "New"))
	require.ErrorIs(t, ac.SignUp(ctx, "new@example.com", "secret1", "New"), ErrEmailTaken)
	require.ErrorIs(t, ac.SignUp(ctx, "other@example.com", "abc", ""), ErrWeakPassword)

	assert.Empty(t, log.kinds(), "sign-up never signs in")
}

func TestRestoreSession(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		ac, log := newAuthClient(t, b, cliauth.NewMemoryTokenStore())
		require.NoError(t, ac.RestoreSession(ctx))
		assert.Equal(t, []session.EventKind{session.EventInitialSession}, log.kinds())
		assert.Nil(t, log.last().User)
	})

	t.Run("valid stored token", func(t *testing.T) {
		tokens := cliauth.NewMemoryTokenStore()
		first, _ := newAuthClient(t, b, tokens)
		require.NoError(t, first.SignIn(ctx, "viewer@example.com", "viewer-password"))

		ac, log := newAuthClient(t, b, tokens)
		require.NoError(t, ac.RestoreSession(ctx))
		assert.Equal(t, []session.EventKind{session.EventInitialSession}, log.kinds())
		require.NotNil(t, log.last().User)
		assert.Equal(t, "viewer@example.com", log.last().User.Email)
	})

	t.Run("garbage token is discarded", func(t *testing.T) {
		tokens := cliauth.NewMemoryTokenStore()
		require.NoError(t, tokens.SaveToken(b.url, "not-a-jwt"))

		ac, log := newAuthClient(t, b, tokens)
		require.NoError(t, ac.RestoreSession(ctx))
		assert.Nil(t, log.last().User)

		_, err := tokens.LoadToken(b.url)
		require.ErrorIs(t, err, cliauth.ErrNotAuthenticated)
	})

	t.Run("revoked token is discarded", func(t *testing.T) {
		tokens := cliauth.NewMemoryTokenStore()
		first, _ := newAuthClient(t, b, tokens)
		require.NoError(t, first.SignIn(ctx, "viewer@example.com", "viewer-password"))
		token := first.api.Token()
		require.NoError(t, first.api.Logout(ctx))
		require.NoError(t, tokens.SaveToken(b.url, token))

		ac, log := newAuthClient(t, b, tokens)
		require.NoError(t, ac.RestoreSession(ctx))
		assert.Nil(t, log.last().User)
	})
}

func TestRestoreSession_RefreshesNearExpiry(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	tokens := cliauth.NewMemoryTokenStore()
	ctx := context.Background()

	first, _ := newAuthClient(t, b, tokens)
	require.NoError(t, first.SignIn(ctx, "viewer@example.com", "viewer-password"))
	original := first.api.Token()

	ac, log := newAuthClient(t, b, tokens)
	ac.RefreshWindow = 48 * time.Hour
	require.NoError(t, ac.RestoreSession(ctx))

	assert.Equal(t, []session.EventKind{session.EventInitialSession, session.EventTokenRefreshed}, log.kinds())
	stored, err := tokens.LoadToken(b.url)
	require.NoError(t, err)
	assert.NotEqual(t, original, stored)
}

func TestRestoreSession_TransportFailure(t *testing.T) {
	tokens := cliauth.NewMemoryTokenStore()
	issued, err := auth.NewSigner("s", time.Hour).GenerateToken("u1", "viewer@example.com")
	require.NoError(t, err)

	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	require.NoError(t, tokens.SaveToken(url, issued.Token))

	ac := NewAuthClient(New(url), tokens, zerolog.Nop())
	log := &eventLog{}
	ac.OnAuthStateChange(log.record)

	require.Error(t, ac.RestoreSession(context.Background()))
	assert.Empty(t, log.kinds())

	// The token survives a network outage
	_, err = tokens.LoadToken(url)
	require.NoError(t, err)
}

func TestSignOut(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	tokens := cliauth.NewMemoryTokenStore()
	ac, log := newAuthClient(t, b, tokens)
	ctx := context.Background()

	require.NoError(t, ac.SignIn(ctx, "viewer@example.com", "viewer-password"))
	token := ac.api.Token()

	require.NoError(t, ac.SignOut(ctx))
	assert.Equal(t, []session.EventKind{session.EventSignedIn, session.EventSignedOut}, log.kinds())
	assert.Nil(t, log.last().User)
	assert.Empty(t, ac.api.Token())

	_, err := tokens.LoadToken(b.url)
	require.ErrorIs(t, err, cliauth.ErrNotAuthenticated)

	// The old token no longer works anywhere
	other := New(b.url)
	other.SetToken(token)
	_, err = other.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestIsAdmin(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	ctx := context.Background()

	ac, log := newAuthClient(t, b, cliauth.NewMemoryTokenStore())
	require.NoError(t, ac.SignIn(ctx, "admin@example.com", "correct-password"))
	adminID := log.last().User.ID

	ok, err := ac.IsAdmin(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ac.IsAdmin(ctx, "someone-else")
	require.Error(t, err)

	require.NoError(t, ac.SignIn(ctx, "viewer@example.com", "viewer-password"))
	ok, err = ac.IsAdmin(ctx, log.last().User.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	ac := NewAuthClient(New(b.url), cliauth.NewMemoryTokenStore(), zerolog.Nop())

	log := &eventLog{}
	unsubscribe := ac.OnAuthStateChange(log.record)
	unsubscribe()
	unsubscribe()

	require.NoError(t, ac.RestoreSession(context.Background()))
	assert.Empty(t, log.kinds())
}

func TestSessionManagerOverHTTP(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	tokens := cliauth.NewMemoryTokenStore()
	ctx := context.Background()

	ac := NewAuthClient(New(b.url), tokens, zerolog.Nop())
	m := session.NewManager(ac, ac, zerolog.Nop())
	defer m.Close()

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Settle(ctx))
	assert.Equal(t, session.StateAnonymous, m.Snapshot().State())

	require.NoError(t, m.SignIn(ctx, "admin@example.com", "correct-password"))
	require.NoError(t, m.Settle(ctx))
	assert.Equal(t, session.StateAdmin, m.Snapshot().State())

	require.NoError(t, m.SignIn(ctx, "viewer@example.com", "viewer-password"))
	require.NoError(t, m.Settle(ctx))
	snap := m.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State())
	assert.Equal(t, "viewer@example.com", snap.User.Email)

	require.NoError(t, m.SignOut(ctx))
	assert.Equal(t, session.StateAnonymous, m.Snapshot().State())

	// A second process picks the stored session back up
	require.NoError(t, m.SignIn(ctx, "admin@example.com", "correct-password"))
	require.NoError(t, m.Settle(ctx))

	ac2 := NewAuthClient(New(b.url), tokens, zerolog.Nop())
	restored := session.NewManager(ac2, ac2, zerolog.Nop())
	defer restored.Close()

	assert.Equal(t, session.StateLoading, restored.Snapshot().State())
	require.NoError(t, restored.Start(ctx))
	require.NoError(t, restored.Settle(ctx))
	assert.Equal(t, session.StateAdmin, restored.Snapshot().State())
}

func TestAPIError(t *testing.T) {
	b := newTestBackend(t, 24*time.Hour)
	c := New(b.url)

	_, err := c.GetProject(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Contains(t, err.Error(), "Project not found")

	assert.Equal(t, 0, StatusOf(assert.AnError))
}

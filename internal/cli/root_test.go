package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
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
	"github.com/reelfolio/reelfolio/internal/cli/commands"
	"github.com/reelfolio/reelfolio/internal/config"
	"github.com/reelfolio/reelfolio/internal/kvstore"
	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/profile"
	"github.com/reelfolio/reelfolio/internal/server"
	"github.com/reelfolio/reelfolio/internal/storage"
)

type nopEnqueuer struct{}

func (nopEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

type harness struct {
	url    string
	db     *gorm.DB
	tokens *cliauth.MemoryTokenStore
	state  *kvstore.MemoryStore
}

func newHarness(t *testing.T) *harness {
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
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: 24 * time.Hour},
	}
	srv, err := server.NewWithDeps(cfg, zerolog.Nop(), "test", db, nopEnqueuer{}, store)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	h := &harness{
		url:    ts.URL,
		db:     db,
		tokens: cliauth.NewMemoryTokenStore(),
		state:  kvstore.NewMemoryStore(),
	}
	h.createUser(t, "admin@example.com", "correct-password", true)
	h.createUser(t, "viewer@example.com", "viewer-password", false)
	return h
}

func (h *harness) createUser(t *testing.T, email, password string, admin bool) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, PasswordHash: hash, EmailVerified: true}
	require.NoError(t, h.db.Create(user).Error)
	if admin {
		require.NoError(t, h.db.Create(&models.UserRole{UserID: user.ID, Role: models.RoleAdmin}).Error)
	}
}

// run executes one CLI invocation against the harness server
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	env := &commands.Env{
		Tokens: h.tokens,
		State:  h.state,
		Out:    &out,
		Logger: zerolog.Nop(),
	}
	root := NewRootCmd(env)
	root.SetArgs(append([]string{"--server", h.url}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAdminCommands_RequireSignIn(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "admin", "stats")
	assert.ErrorIs(t, err, commands.ErrSignInRequired)
}

func TestAdminCommands_RejectNonAdmin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "viewer@example.com", "--password", "viewer-password")
	require.NoError(t, err)

	_, err = h.run(t, "admin", "stats")
	assert.ErrorIs(t, err, commands.ErrNotAuthorized)
}

func TestLogin_Admin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "login", "--email", "admin@example.com", "--password", "correct-password")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Login successful!")
	assert.Contains(t, out, "Role: Admin")

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User: admin@example.com")
	assert.Contains(t, out, "Role: admin")
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "admin@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	out, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestAdminWorkflow(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "admin@example.com", "--password", "correct-password")
	require.NoError(t, err)

	out, err := h.run(t, "admin", "categories", "create", "Web Apps", "--order", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Category created: Web Apps")

	var category models.Category
	require.NoError(t, h.db.Where("name = ?", "Web Apps").First(&category).Error)

	out, err = h.run(t, "admin", "projects", "create",
		"--title", "Reel Player",
		"--description", "A video player",
		"--image", "https://example.com/reel.png",
		"--tags", "go, video",
		"--status", "Live",
		"--featured",
		"--category-id", category.ID,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Project created: Reel Player")

	out, err = h.run(t, "admin", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total projects:    1")
	assert.Contains(t, out, "Live projects:     1")
	assert.Contains(t, out, "Featured projects: 1")
	assert.Contains(t, out, "Categories:        1")

	out, err = h.run(t, "projects", "--category", "Web Apps")
	require.NoError(t, err)
	assert.Contains(t, out, "Reel Player ★")
	assert.Contains(t, out, "go, video")

	out, err = h.run(t, "search", "video")
	require.NoError(t, err)
	assert.Contains(t, out, "Reel Player")
}

func TestAdminEditCommands(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "admin@example.com", "--password", "correct-password")
	require.NoError(t, err)

	category := &models.Category{Name: "Tools", DisplayOrder: 2}
	require.NoError(t, h.db.Create(category).Error)
	project := &models.Project{
		Title: "Old Title", Description: "keep me", Image: "https://example.com/a.png",
		Status: models.ProjectStatusInProgress, Tags: []string{"go"}, CategoryID: &category.ID,
	}
	require.NoError(t, h.db.Create(project).Error)
	banner := &models.Banner{
		Title: "Hero", Description: "d", ImageURL: "https://example.com/b.png",
		MatchPercentage: 97, Genre: "Featured", Rating: "PG-13", IsActive: true,
	}
	require.NoError(t, h.db.Create(banner).Error)

	out, err := h.run(t, "admin", "projects", "update", project.ID, "--title", "New Title", "--status", "Live")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Project updated: New Title")

	var gotProject models.Project
	require.NoError(t, h.db.First(&gotProject, "id = ?", project.ID).Error)
	assert.Equal(t, "New Title", gotProject.Title)
	assert.Equal(t, models.ProjectStatusLive, gotProject.Status)
	assert.Equal(t, "keep me", gotProject.Description)
	assert.Equal(t, []string{"go"}, gotProject.Tags)
	require.NotNil(t, gotProject.CategoryID)
	assert.Equal(t, category.ID, *gotProject.CategoryID)

	out, err = h.run(t, "admin", "categories", "update", category.ID, "--name", "Dev Tools")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Category updated: Dev Tools")

	var gotCategory models.Category
	require.NoError(t, h.db.First(&gotCategory, "id = ?", category.ID).Error)
	assert.Equal(t, "Dev Tools", gotCategory.Name)
	assert.Equal(t, 2, gotCategory.DisplayOrder)

	_, err = h.run(t, "admin", "banners", "update", banner.ID, "--active=false", "--match", "88")
	require.NoError(t, err)

	var gotBanner models.Banner
	require.NoError(t, h.db.First(&gotBanner, "id = ?", banner.ID).Error)
	assert.False(t, gotBanner.IsActive)
	assert.Equal(t, 88, gotBanner.MatchPercentage)
	assert.Equal(t, "Hero", gotBanner.Title)

	_, err = h.run(t, "admin", "banners", "update", "missing-id", "--title", "x")
	assert.Error(t, err)
}

func TestAdminAboutCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "admin@example.com", "--password", "correct-password")
	require.NoError(t, err)

	_, err = h.run(t, "admin", "about", "--location", "London")
	require.Error(t, err, "a new about page needs a name")

	out, err := h.run(t, "admin", "about",
		"--name", "Ada",
		"--location", "London",
		"--skill", "Backend=Go, SQL",
		"--link", "github=https://github.com/ada",
		"--timeline", "2020 - now|Staff Engineer|Platform team",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ About page saved for Ada")

	// A later edit keeps what it does not mention
	_, err = h.run(t, "admin", "about", "--bio", "Builds things")
	require.NoError(t, err)

	out, err = h.run(t, "about")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Location: London")
	assert.Contains(t, out, "Builds things")
	assert.Contains(t, out, "Backend: Go, SQL")
	assert.Contains(t, out, "github: https://github.com/ada")
	assert.Contains(t, out, "Staff Engineer")

	var count int64
	require.NoError(t, h.db.Model(&models.About{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdminAboutCommand_RequiresAdmin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "--email", "viewer@example.com", "--password", "viewer-password")
	require.NoError(t, err)

	_, err = h.run(t, "admin", "about", "--name", "Mallory")
	assert.ErrorIs(t, err, commands.ErrNotAuthorized)
}

func TestLogout_RevokesAdminAccess(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "admin@example.com", "--password", "correct-password")
	require.NoError(t, err)

	out, err := h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Signed out.")

	_, err = h.tokens.LoadToken(h.url)
	assert.ErrorIs(t, err, cliauth.ErrNotAuthenticated)

	_, err = h.run(t, "admin", "stats")
	assert.ErrorIs(t, err, commands.ErrSignInRequired)
}

func TestPublicBrowsing_Anonymous(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.Create(&models.Project{
		Title: "Side Quest", Description: "d", Image: "i", Status: models.ProjectStatusInProgress, Tags: []string{},
	}).Error)

	out, err := h.run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Side Quest")

	out, err = h.run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "No categories found.")

	_, err = h.run(t, "about")
	require.Error(t, err)
}

func TestProfileCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "profile", "Developer")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Watching as Developer")

	stored, err := h.state.Get(profile.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "developer", stored)

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile: Developer")

	_, err = h.run(t, "profile", "critic")
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestServerCommand(t *testing.T) {
	h := newHarness(t)

	var out bytes.Buffer
	env := &commands.Env{Tokens: h.tokens, State: h.state, Out: &out, Logger: zerolog.Nop()}
	root := NewRootCmd(env)
	root.SetArgs([]string{"server", h.url + "/"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "✓ Server set to "+h.url)

	stored, err := h.state.Get("server")
	require.NoError(t, err)
	assert.Equal(t, h.url, stored)
	assert.Equal(t, h.url, env.ResolveServer())

	root = NewRootCmd(env)
	root.SetArgs([]string{"server", "ftp://nowhere"})
	assert.Error(t, root.Execute())
}

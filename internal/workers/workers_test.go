package workers

import (
	"context"
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

	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/tasks"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type sentMail struct {
	to, name, link string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) SendVerification(ctx context.Context, to, name, link string) error {
	m.sent = append(m.sent, sentMail{to: to, name: name, link: link})
	return nil
}

func TestHandleSendVerificationEmail(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Email: "new@example.com", PasswordHash: "x", Name: "New", VerificationToken: "tok+en"}
	require.NoError(t, db.Create(&user).Error)

	task, err := tasks.NewSendVerificationEmailTask(user.ID)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	err = HandleSendVerificationEmail(context.Background(), task, db, mailer, "https://folio.example.com", zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "new@example.com", mailer.sent[0].to)
	assert.Equal(t, "New", mailer.sent[0].name)
	assert.Equal(t, "https://folio.example.com/api/auth/verify?token=tok%2Ben", mailer.sent[0].link)
}

func TestHandleSendVerificationEmail_Skips(t *testing.T) {
	db := newTestDB(t)
	verified := models.User{Email: "done@example.com", PasswordHash: "x", EmailVerified: true}
	require.NoError(t, db.Create(&verified).Error)

	mailer := &recordingMailer{}
	for _, id := range []string{verified.ID, "01HXMISSING"} {
		task, err := tasks.NewSendVerificationEmailTask(id)
		require.NoError(t, err)
		require.NoError(t, HandleSendVerificationEmail(context.Background(), task, db, mailer, "http://localhost", zerolog.Nop()))
	}
	assert.Empty(t, mailer.sent)
}

func TestHandleSendVerificationEmail_BadPayload(t *testing.T) {
	db := newTestDB(t)
	task := asynq.NewTask(tasks.TypeSendVerificationEmail, []byte("not json"))

	err := HandleSendVerificationEmail(context.Background(), task, db, &recordingMailer{}, "http://localhost", zerolog.Nop())
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeObjects struct {
	deleted []string
}

func (f *fakeObjects) Delete(bucket, key string) error {
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

func TestCleanupOrphanUploads(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	uploads := []models.Upload{
		{Bucket: "banners", Key: "used.png", URL: "http://x/storage/banners/used.png"},
		{Bucket: "banners", Key: "orphan.png", URL: "http://x/storage/banners/orphan.png"},
		{Bucket: "avatars", Key: "me.jpg", URL: "http://x/storage/avatars/me.jpg"},
		{Bucket: "banners", Key: "fresh.png", URL: "http://x/storage/banners/fresh.png"},
	}
	for i := range uploads {
		require.NoError(t, db.Create(&uploads[i]).Error)
	}
	// fresh.png keeps its recent timestamp
	require.NoError(t, db.Model(&models.Upload{}).Where("url <> ?", uploads[3].URL).Update("created_at", old).Error)

	require.NoError(t, db.Create(&models.Banner{Title: "Hero", Description: "d", ImageURL: uploads[0].URL, MatchPercentage: 97, IsActive: true}).Error)
	avatar := uploads[2].URL
	require.NoError(t, db.Create(&models.About{Name: "Me", Avatar: &avatar}).Error)

	require.NoError(t, db.Create(&models.RevokedToken{TokenID: "expired", ExpiresAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.RevokedToken{TokenID: "live", ExpiresAt: now.Add(time.Hour)}).Error)

	objects := &fakeObjects{}
	result, err := CleanupOrphanUploads(context.Background(), db, objects, 24*time.Hour, now, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, result.OrphansDeleted)
	assert.Equal(t, int64(1), result.TokensPurged)
	assert.Equal(t, []string{"banners/orphan.png"}, objects.deleted)

	var remaining []string
	require.NoError(t, db.Model(&models.Upload{}).Order("url").Pluck("key", &remaining).Error)
	assert.Equal(t, []string{"me.jpg", "fresh.png", "used.png"}, remaining)

	var tokens []string
	require.NoError(t, db.Model(&models.RevokedToken{}).Pluck("token_id", &tokens).Error)
	assert.Equal(t, []string{"live"}, tokens)
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func TestEnqueueCleanup(t *testing.T) {
	enq := &recordingEnqueuer{}
	enqueueCleanup(enq, zerolog.Nop())

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.TypeCleanupOrphanUploads, enq.tasks[0].Type())

	payload, err := tasks.ParseCleanupPayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, DefaultOrphanAge, payload.OlderThan)
}

func TestStartCleanupScheduler(t *testing.T) {
	c, err := StartCleanupScheduler(&recordingEnqueuer{}, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = StartCleanupScheduler(&recordingEnqueuer{}, "not a schedule", zerolog.Nop())
	require.Error(t, err)

	c, err = StartCleanupScheduler(&recordingEnqueuer{}, "0 3 * * *", zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	next := NextRun("0 3 * * *", from)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), *next)

	assert.Nil(t, NextRun("", from))
	assert.Nil(t, NextRun("bogus", from))
}

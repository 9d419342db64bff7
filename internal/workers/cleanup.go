package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/tasks"
)

// DefaultOrphanAge gives admins time to attach an upload to a record
const DefaultOrphanAge = 24 * time.Hour

// ObjectDeleter removes stored objects
type ObjectDeleter interface {
	Delete(bucket, key string) error
}

// CleanupResult summarises one cleanup run
type CleanupResult struct {
	OrphansDeleted int
	TokensPurged   int64
}

// HandleCleanupOrphanUploads deletes uploads no banner, project or about row
// points at, and purges revocation records of tokens that have expired.
func HandleCleanupOrphanUploads(ctx context.Context, t *asynq.Task, db *gorm.DB, objects ObjectDeleter, logger zerolog.Logger) error {
	payload, err := tasks.ParseCleanupPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := CleanupOrphanUploads(ctx, db, objects, payload.OlderThan, time.Now(), logger)
	if err != nil {
		return err
	}

	logger.Info().
		Int("orphans_deleted", result.OrphansDeleted).
		Int64("tokens_purged", result.TokensPurged).
		Msg("Cleanup finished")
	return nil
}

// CleanupOrphanUploads does the work of the cleanup task relative to now
func CleanupOrphanUploads(ctx context.Context, db *gorm.DB, objects ObjectDeleter, olderThan time.Duration, now time.Time, logger zerolog.Logger) (*CleanupResult, error) {
	if olderThan <= 0 {
		olderThan = DefaultOrphanAge
	}
	db = db.WithContext(ctx)
	result := &CleanupResult{}

	referenced, err := referencedURLs(db)
	if err != nil {
		return nil, err
	}

	var candidates []models.Upload
	if err := db.Where("created_at < ?", now.Add(-olderThan)).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	for _, upload := range candidates {
		if referenced[upload.URL] {
			continue
		}
		if err := objects.Delete(upload.Bucket, upload.Key); err != nil {
			logger.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to delete orphaned object")
			continue
		}
		if err := db.Delete(&upload).Error; err != nil {
			logger.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to delete upload record")
			continue
		}
		result.OrphansDeleted++
		logger.Debug().Str("bucket", upload.Bucket).Str("key", upload.Key).Msg("Deleted orphaned upload")
	}

	purge := db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if purge.Error != nil {
		return nil, fmt.Errorf("failed to purge revoked tokens: %w", purge.Error)
	}
	result.TokensPurged = purge.RowsAffected

	return result, nil
}

func referencedURLs(db *gorm.DB) (map[string]bool, error) {
	refs := map[string]bool{}

	var urls []string
	if err := db.Model(&models.Banner{}).Pluck("image_url", &urls).Error; err != nil {
		return nil, fmt.Errorf("failed to load banner images: %w", err)
	}
	for _, u := range urls {
		refs[u] = true
	}

	urls = nil
	if err := db.Model(&models.Project{}).Pluck("image", &urls).Error; err != nil {
		return nil, fmt.Errorf("failed to load project images: %w", err)
	}
	for _, u := range urls {
		refs[u] = true
	}

	var avatars []*string
	if err := db.Model(&models.About{}).Pluck("avatar", &avatars).Error; err != nil {
		return nil, fmt.Errorf("failed to load avatars: %w", err)
	}
	for _, a := range avatars {
		if a != nil {
			refs[*a] = true
		}
	}

	return refs, nil
}

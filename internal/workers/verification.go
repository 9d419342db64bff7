package workers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reelfolio/reelfolio/internal/models"
	"github.com/reelfolio/reelfolio/internal/tasks"
)

// HandleSendVerificationEmail sends the verification link for a new account
func HandleSendVerificationEmail(ctx context.Context, t *asynq.Task, db *gorm.DB, mailer Mailer, publicURL string, logger zerolog.Logger) error {
	payload, err := tasks.ParseVerificationPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := logger.With().Str("user_id", payload.UserID).Logger()

	var user models.User
	if err := db.WithContext(ctx).Where("id = ?", payload.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Msg("User no longer exists, skipping verification email")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if user.EmailVerified || user.VerificationToken == "" {
		log.Debug().Msg("User already verified, skipping verification email")
		return nil
	}

	link := publicURL + "/api/auth/verify?token=" + url.QueryEscape(user.VerificationToken)
	if err := mailer.SendVerification(ctx, user.Email, user.Name, link); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	log.Info().Str("email", user.Email).Msg("Verification email sent")
	return nil
}

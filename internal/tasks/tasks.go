package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeSendVerificationEmail = "email:send_verification"
	TypeCleanupOrphanUploads  = "storage:cleanup_orphans"
)

// Enqueuer is the part of asynq.Client the API server needs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// VerificationPayload identifies the user awaiting verification
type VerificationPayload struct {
	UserID string `json:"user_id"`
}

// CleanupPayload bounds which uploads are old enough to be removed
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewSendVerificationEmailTask creates a task that delivers the verification link
func NewSendVerificationEmailTask(userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(VerificationPayload{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendVerificationEmail, payload, asynq.MaxRetry(5)), nil
}

// NewCleanupOrphanUploadsTask creates a task that deletes unreferenced uploads
func NewCleanupOrphanUploadsTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(CleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeCleanupOrphanUploads, payload, asynq.MaxRetry(1)), nil
}

// ParseVerificationPayload parses the payload of a verification task
func ParseVerificationPayload(task *asynq.Task) (VerificationPayload, error) {
	var payload VerificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParseCleanupPayload parses the payload of a cleanup task
func ParseCleanupPayload(task *asynq.Task) (CleanupPayload, error) {
	var payload CleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

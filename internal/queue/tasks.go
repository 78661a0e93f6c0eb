package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypePublishPost      = "publish:post"
	TaskTypePostAnalytics    = "analytics:post"
	TaskTypeAccountAnalytics = "analytics:account"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
	// ScheduledAt is the slot the task was enqueued for. A post whose
	// scheduled_at moved after enqueue makes the task stale.
	ScheduledAt time.Time `json:"scheduled_at"`
}

type PostAnalyticsPayload struct {
	PostID int64 `json:"post_id"`
}

type AccountAnalyticsPayload struct {
	AccountID int64 `json:"account_id"`
}

// Scheduler enqueues durable delayed work. Implementations survive
// process restarts; only Redis loss drops pending tasks.
type Scheduler interface {
	EnqueuePublish(ctx context.Context, postID int64, at time.Time) error
	EnqueuePostAnalytics(ctx context.Context, postID int64, delay time.Duration) error
	EnqueueAccountAnalytics(ctx context.Context, accountID int64, delay time.Duration) error
}

type asynqScheduler struct {
	client *asynq.Client
}

func NewScheduler(client *asynq.Client) Scheduler {
	return &asynqScheduler{client: client}
}

func (s *asynqScheduler) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID, ScheduledAt: at})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	// Retries are owned by the publish pipeline, which reschedules failed
	// posts itself with its own backoff.
	_, err = s.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("publish task enqueued", "post_id", postID, "at", at)
	return nil
}

func (s *asynqScheduler) EnqueuePostAnalytics(ctx context.Context, postID int64, delay time.Duration) error {
	payload, err := json.Marshal(PostAnalyticsPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePostAnalytics, payload)

	_, err = s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(2))
	if err != nil {
		return err
	}

	slog.Info("post analytics task enqueued", "post_id", postID, "delay", delay)
	return nil
}

func (s *asynqScheduler) EnqueueAccountAnalytics(ctx context.Context, accountID int64, delay time.Duration) error {
	payload, err := json.Marshal(AccountAnalyticsPayload{AccountID: accountID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeAccountAnalytics, payload)

	_, err = s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(2))
	if err != nil {
		return err
	}

	slog.Info("account analytics task enqueued", "account_id", accountID, "delay", delay)
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Publisher executes one publish attempt for a claimed post.
type Publisher interface {
	PublishPost(ctx context.Context, postID int64, scheduledAt time.Time) error
}

// AnalyticsSyncer pulls and stores insight data.
type AnalyticsSyncer interface {
	SyncPost(ctx context.Context, postID int64) error
	SyncAccount(ctx context.Context, accountID int64) error
}

// Worker decodes asynq tasks and dispatches them to the pipelines.
type Worker struct {
	publisher Publisher
	analytics AnalyticsSyncer
}

func NewWorker(publisher Publisher, analytics AnalyticsSyncer) *Worker {
	return &Worker{publisher: publisher, analytics: analytics}
}

// Register binds all task handlers onto the mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
	mux.HandleFunc(TaskTypePostAnalytics, w.HandlePostAnalyticsTask)
	mux.HandleFunc(TaskTypeAccountAnalytics, w.HandleAccountAnalyticsTask)
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := w.publisher.PublishPost(ctx, payload.PostID, payload.ScheduledAt); err != nil {
		slog.Error("publish task failed", "post_id", payload.PostID, "error", err)
	}
	// The pipeline records failures on the post itself; returning nil
	// keeps asynq from retrying on top of our own retry schedule.
	return nil
}

func (w *Worker) HandlePostAnalyticsTask(ctx context.Context, task *asynq.Task) error {
	var payload PostAnalyticsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	return w.analytics.SyncPost(ctx, payload.PostID)
}

func (w *Worker) HandleAccountAnalyticsTask(ctx context.Context, task *asynq.Task) error {
	var payload AccountAnalyticsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	return w.analytics.SyncAccount(ctx, payload.AccountID)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/vendora/socialpulse/internal/lifecycle"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/queue"
	"github.com/vendora/socialpulse/internal/repository"
	"github.com/vendora/socialpulse/internal/scheduling"
	"github.com/vendora/socialpulse/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, vendorID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	Schedule(ctx context.Context, vendorID int64, req *transfer.ScheduleRequest) (time.Time, error)
	BulkSchedule(ctx context.Context, vendorID int64, req *transfer.BulkScheduleRequest) ([]*BulkScheduleResult, error)
	Unschedule(ctx context.Context, vendorID, postID int64) error
	Cancel(ctx context.Context, vendorID, postID int64) error
	List(ctx context.Context, vendorID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, vendorID int64) (*models.Post, error)
	Remove(ctx context.Context, vendorID, postID int64) error
	ProposeTimes(ctx context.Context, vendorID int64, platform, contentType, timezone string, limit int) ([]*scheduling.ScheduleSlot, error)
	Conflicts(ctx context.Context, vendorID int64, from, to time.Time) ([]*scheduling.Conflict, error)
}

type postService struct {
	db        *sql.DB
	pr        repository.PostRepository
	ac        repository.AccountRepository
	ma        repository.MediaAssetRepository
	pm        repository.PostMediaRepository
	st        repository.SettingsRepository
	r2        R2Service
	lc        *lifecycle.Manager
	engine    *scheduling.Engine
	scheduler queue.Scheduler
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ac repository.AccountRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	st repository.SettingsRepository,
	r2 R2Service,
	lc *lifecycle.Manager,
	engine *scheduling.Engine,
	scheduler queue.Scheduler) PostService {
	return &postService{
		db:        db,
		pr:        pr,
		ac:        ac,
		ma:        ma,
		pm:        pm,
		st:        st,
		r2:        r2,
		lc:        lc,
		engine:    engine,
		scheduler: scheduler,
	}
}

// CreatePost stores a draft with its media. Publishing is a separate
// step; nothing is enqueued here.
func (s *postService) CreatePost(ctx context.Context, vendorID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}

	accountID, err := strconv.ParseInt(pc.AccountID, 10, 64)
	if err != nil || accountID == 0 {
		err = errors.New("account_id is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	exists, err := s.ac.CheckByVendorID(ctx, accountID, vendorID)
	if err != nil {
		return 0, err
	}
	if !exists {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return 0, err
	}

	contentType := pc.ContentType
	if contentType == "" {
		contentType = models.ContentTypeFeed
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		AccountID:   accountID,
		VendorID:    vendorID,
		ContentType: contentType,
		Caption:     pc.Caption,
		Hashtags:    parseHashtags(pc.Hashtags),
		Status:      models.PostStatusDraft,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.processFiles(ctx, tx, vendorID, postID, files); err != nil {
		return 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, nil
}

func parseHashtags(raw string) []string {
	if raw == "" {
		return nil
	}

	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "#"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, vendorID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, vendorID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, vendorID int64, fileType string, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	err = s.r2.UploadToR2(ctx, id, file, fileType)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		VendorID: vendorID,
		FileName: id,
		FileType: fileType,
		FileSize: int64(len(file)),
		FileURL:  s.r2.PublicURL(id),
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

// Schedule resolves the slot (explicit or engine-proposed), validates
// the draft and enqueues the publish task.
func (s *postService) Schedule(ctx context.Context, vendorID int64, req *transfer.ScheduleRequest) (time.Time, error) {
	if req == nil || req.PostID == 0 {
		return time.Time{}, errors.New("post_id is not valid")
	}

	if err := s.checkOwnership(ctx, req.PostID, vendorID); err != nil {
		return time.Time{}, err
	}

	post, err := s.pr.GetByID(ctx, req.PostID)
	if err != nil {
		return time.Time{}, err
	}
	if post == nil {
		return time.Time{}, lifecycle.ErrNotFound
	}

	account, err := s.ac.GetByID(ctx, post.AccountID)
	if err != nil {
		return time.Time{}, err
	}
	if account == nil {
		return time.Time{}, errors.New("account doesn't exist")
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = s.vendorTimezone(ctx, vendorID)
	}

	var scheduledAt time.Time
	if req.UseOptimalTime {
		scheduledAt, err = s.engine.ProposeOptimalTime(ctx, account.Platform, post.ContentType, timezone, time.Now())
		if err != nil {
			return time.Time{}, err
		}
	} else {
		scheduledAt, err = parseScheduleTime(req.ScheduledAt, timezone)
		if err != nil {
			return time.Time{}, err
		}
		if err := s.engine.ValidateTime(scheduledAt, time.Now()); err != nil {
			return time.Time{}, err
		}
	}

	// Stored timestamps round-trip at microsecond precision; the queue
	// payload must carry the same value the row does.
	scheduledAt = scheduledAt.Truncate(time.Microsecond)

	if err := s.lc.Schedule(ctx, req.PostID, scheduledAt, req.PlatformNative); err != nil {
		return time.Time{}, err
	}

	if err := s.scheduler.EnqueuePublish(ctx, req.PostID, scheduledAt); err != nil {
		return time.Time{}, fmt.Errorf("error enqueueing publish task: %w", err)
	}

	return scheduledAt, nil
}

// BulkScheduleResult reports the outcome for one post in a batch.
type BulkScheduleResult struct {
	PostID      int64      `json:"post_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// BulkSchedule assigns a slot to every post in the batch and schedules
// the ones that validate. Outcomes are per post; one bad item never
// aborts the rest.
func (s *postService) BulkSchedule(ctx context.Context, vendorID int64, req *transfer.BulkScheduleRequest) ([]*BulkScheduleResult, error) {
	if req == nil || len(req.PostIDs) == 0 {
		return nil, errors.New("post_ids are required")
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = s.vendorTimezone(ctx, vendorID)
	}

	results := make([]*BulkScheduleResult, 0, len(req.PostIDs))
	items := make([]*scheduling.BulkItem, 0, len(req.PostIDs))

	for _, postID := range req.PostIDs {
		if err := s.checkOwnership(ctx, postID, vendorID); err != nil {
			results = append(results, &BulkScheduleResult{PostID: postID, Error: err.Error()})
			continue
		}

		post, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		if post == nil {
			results = append(results, &BulkScheduleResult{PostID: postID, Error: "post doesn't exist"})
			continue
		}
		account, err := s.ac.GetByID(ctx, post.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			results = append(results, &BulkScheduleResult{PostID: postID, Error: "account doesn't exist"})
			continue
		}

		items = append(items, &scheduling.BulkItem{
			PostID:      postID,
			Platform:    account.Platform,
			ContentType: post.ContentType,
			Timezone:    timezone,
		})
	}

	for _, a := range s.engine.BulkAssign(ctx, items, req.Strategy, time.Now()) {
		res := &BulkScheduleResult{PostID: a.PostID}
		if a.Err != nil {
			res.Error = a.Err.Error()
			results = append(results, res)
			continue
		}

		at := a.ScheduledAt.Truncate(time.Microsecond)
		if err := s.lc.Schedule(ctx, a.PostID, at, req.PlatformNative); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		if err := s.scheduler.EnqueuePublish(ctx, a.PostID, at); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.ScheduledAt = &at
		results = append(results, res)
	}

	return results, nil
}

func parseScheduleTime(raw, timezone string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("scheduled_at is required")
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time format: %w", err)
	}
	return t, nil
}

func (s *postService) vendorTimezone(ctx context.Context, vendorID int64) string {
	settings, err := s.st.GetByVendorID(ctx, vendorID)
	if err != nil || settings == nil || settings.Timezone == "" {
		return "UTC"
	}
	return settings.Timezone
}

func (s *postService) Unschedule(ctx context.Context, vendorID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, vendorID); err != nil {
		return err
	}
	return s.lc.Unschedule(ctx, postID)
}

func (s *postService) Cancel(ctx context.Context, vendorID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, vendorID); err != nil {
		return err
	}
	return s.lc.Cancel(ctx, postID)
}

func (s *postService) List(ctx context.Context, vendorID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByVendorID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, vendorID int64) (*models.Post, error) {
	if err := s.checkOwnership(ctx, postID, vendorID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, vendorID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, vendorID); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post != nil && post.Status == models.PostStatusPublishing {
		return errors.New("cannot remove a post mid-publish")
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}
	return nil
}

func (s *postService) ProposeTimes(ctx context.Context, vendorID int64, platform, contentType, timezone string, limit int) ([]*scheduling.ScheduleSlot, error) {
	if timezone == "" {
		timezone = s.vendorTimezone(ctx, vendorID)
	}
	return s.engine.SuggestSlots(ctx, platform, contentType, timezone, time.Now(), limit)
}

func (s *postService) Conflicts(ctx context.Context, vendorID int64, from, to time.Time) ([]*scheduling.Conflict, error) {
	return s.engine.DetectConflicts(ctx, vendorID, from, to)
}

func (s *postService) checkOwnership(ctx context.Context, postID, vendorID int64) error {
	if vendorID == 0 {
		err := errors.New("vendor is not valid")
		slog.Info(err.Error())
		return err
	}
	if postID == 0 {
		err := errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByVendorID(ctx, postID, vendorID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/repository"
)

// PostAnalyticsSummary bundles lifetime totals, the daily series and
// reached milestones for one post.
type PostAnalyticsSummary struct {
	PostID         int64                     `json:"post_id"`
	EngagementRate *float64                  `json:"engagement_rate"`
	Totals         *models.AnalyticsRecord   `json:"totals"`
	Daily          []*models.AnalyticsRecord `json:"daily"`
	Milestones     []*models.PostMilestone   `json:"milestones"`
}

type AnalyticsService interface {
	PostSummary(ctx context.Context, vendorID, postID int64) (*PostAnalyticsSummary, error)
	AccountSeries(ctx context.Context, vendorID, accountID int64, from, to time.Time) ([]*models.AnalyticsRecord, error)
	RecordWebhookEvent(ctx context.Context, platformName, topic string, payload []byte) error
}

type analyticsService struct {
	pr repository.PostRepository
	ac repository.AccountRepository
	an repository.AnalyticsRepository
	ms repository.MilestoneRepository
	ev repository.EventRepository
}

func NewAnalyticsService(pr repository.PostRepository, ac repository.AccountRepository,
	an repository.AnalyticsRepository, ms repository.MilestoneRepository,
	ev repository.EventRepository) AnalyticsService {
	return &analyticsService{
		pr: pr,
		ac: ac,
		an: an,
		ms: ms,
		ev: ev,
	}
}

func (s *analyticsService) PostSummary(ctx context.Context, vendorID, postID int64) (*PostAnalyticsSummary, error) {
	isValid, err := s.pr.CheckByVendorID(ctx, postID, vendorID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	totals, err := s.an.TotalsForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error aggregating analytics")
	}

	daily, err := s.an.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error listing analytics")
	}

	milestones, err := s.ms.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error listing milestones")
	}

	summary := &PostAnalyticsSummary{
		PostID:     postID,
		Totals:     totals,
		Daily:      daily,
		Milestones: milestones,
	}
	if post != nil {
		summary.EngagementRate = post.EngagementRate
	}
	return summary, nil
}

func (s *analyticsService) AccountSeries(ctx context.Context, vendorID, accountID int64, from, to time.Time) ([]*models.AnalyticsRecord, error) {
	isValid, err := s.ac.CheckByVendorID(ctx, accountID, vendorID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.an.ListByAccountRange(ctx, accountID, from, to)
}

// RecordWebhookEvent stores an inbound platform notification for later
// processing. Intake never rejects on payload content.
func (s *analyticsService) RecordWebhookEvent(ctx context.Context, platformName, topic string, payload []byte) error {
	_, err := s.ev.CreateWebhookEvent(ctx, &models.WebhookEvent{
		Platform: platformName,
		Topic:    topic,
		Payload:  payload,
	})
	return err
}

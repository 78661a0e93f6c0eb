package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type YoutubeClient struct {
	cfg config.Config
}

func NewYoutubeClient(cfg config.Config) *YoutubeClient {
	return &YoutubeClient{cfg: cfg}
}

func (c *YoutubeClient) service(ctx context.Context, account *models.Account) (*youtube.Service, error) {
	accessToken, err := utils.Decrypt(account.AccessToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformYoutube, "stored token unreadable", err)
	}

	token := &oauth2.Token{AccessToken: accessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, NewPublishError(KindTransientNetwork, models.PlatformYoutube, "error creating service", err)
	}
	return service, nil
}

func (c *YoutubeClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	service, err := c.service(ctx, account)
	if err != nil {
		return false, err
	}

	resp, err := service.Channels.List([]string{"id"}).Mine(true).Do()
	if err != nil {
		return false, NewPublishError(KindAccountInvalid, models.PlatformYoutube, "channel lookup failed", err)
	}
	return len(resp.Items) > 0, nil
}

func (c *YoutubeClient) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 || !req.Media[0].IsVideo() {
		return nil, NewPublishError(KindContentRejected, models.PlatformYoutube, "a video asset is required", nil)
	}

	service, err := c.service(ctx, req.Account)
	if err != nil {
		return nil, err
	}

	tempFile, err := downloadToTempFile(ctx, req.Media[0].FileURL)
	if err != nil {
		return nil, NewPublishError(KindTransientNetwork, models.PlatformYoutube, "error fetching media", err)
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return nil, NewPublishError(KindUnknown, models.PlatformYoutube, "error opening media file", err)
	}
	defer file.Close()

	title := req.Post.Caption
	if len(title) > 100 {
		title = title[:100]
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: req.Post.Caption + "\n\n" + strings.Join(req.Post.Hashtags, " "),
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Do()
	if err != nil {
		return nil, NewPublishError(KindUnknown, models.PlatformYoutube, "error uploading video", err)
	}

	return &PublishResult{
		PlatformPostID: response.Id,
		PlatformURL:    fmt.Sprintf("https://youtu.be/%s", response.Id),
	}, nil
}

// GetPostInsights reads video statistics; YouTube reports flat counters.
func (c *YoutubeClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error) {
	service, err := c.service(ctx, account)
	if err != nil {
		return nil, err
	}

	resp, err := service.Videos.List([]string{"statistics"}).Id(platformPostID).Do()
	if err != nil {
		return nil, NewPublishError(KindTransientNetwork, models.PlatformYoutube, "error reading video statistics", err)
	}
	if len(resp.Items) == 0 {
		return &RawInsightPayload{Totals: map[string]float64{}}, nil
	}

	stats := resp.Items[0].Statistics
	return &RawInsightPayload{
		Totals: map[string]float64{
			"impressions": float64(stats.ViewCount),
			"reach":       float64(stats.ViewCount),
			"likes":       float64(stats.LikeCount),
			"comments":    float64(stats.CommentCount),
		},
	}, nil
}

func (c *YoutubeClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error) {
	service, err := c.service(ctx, account)
	if err != nil {
		return nil, err
	}

	resp, err := service.Channels.List([]string{"statistics"}).Mine(true).Do()
	if err != nil {
		return nil, NewPublishError(KindTransientNetwork, models.PlatformYoutube, "error reading channel statistics", err)
	}
	if len(resp.Items) == 0 {
		return &RawInsightPayload{Totals: map[string]float64{}}, nil
	}

	stats := resp.Items[0].Statistics
	return &RawInsightPayload{
		Totals: map[string]float64{
			"follower_count": float64(stats.SubscriberCount),
			"post_count":     float64(stats.VideoCount),
			"impressions":    float64(stats.ViewCount),
		},
	}, nil
}

func (c *YoutubeClient) RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error) {
	refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformYoutube, "stored refresh token unreadable", err)
	}

	conf := &oauth2.Config{
		ClientID:     c.cfg.GoogleClientID,
		ClientSecret: c.cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
		Endpoint:     google.Endpoint,
	}

	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformYoutube, "token refresh failed", err)
	}

	encrypted, err := utils.Encrypt([]byte(token.AccessToken), []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	return &TokenResult{
		AccessToken: encrypted,
		ExpiresAt:   token.Expiry,
	}, nil
}

func downloadToTempFile(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code fetching media: %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		return "", err
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		os.Remove(tempFile.Name())
		return "", err
	}

	return tempFile.Name(), nil
}

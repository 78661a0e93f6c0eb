package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/pkg/utils"
)

const instagramGraphURL = "https://graph.instagram.com/v21.0"

// InstagramClient publishes through the Graph API container flow:
// create one media container per asset, then publish the container.
type InstagramClient struct {
	cfg config.Config
}

func NewInstagramClient(cfg config.Config) *InstagramClient {
	return &InstagramClient{cfg: cfg}
}

func (c *InstagramClient) token(account *models.Account) (string, error) {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return "", NewPublishError(KindAccountInvalid, models.PlatformInstagram, "stored token unreadable", err)
	}
	return decrypted, nil
}

func (c *InstagramClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return false, err
	}

	var result struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/me?fields=id&access_token=%s", instagramGraphURL, url.QueryEscape(accessToken))
	if err := getJSON(ctx, models.PlatformInstagram, endpoint, nil, &result); err != nil {
		return false, err
	}
	return result.ID != "", nil
}

func (c *InstagramClient) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	accessToken, err := c.token(req.Account)
	if err != nil {
		return nil, err
	}

	if len(req.Media) == 0 {
		return nil, NewPublishError(KindContentRejected, models.PlatformInstagram, "no media attached", nil)
	}

	caption := req.Post.Caption
	if len(req.Post.Hashtags) > 0 {
		caption = caption + "\n\n" + strings.Join(req.Post.Hashtags, " ")
	}

	var containerID string
	switch req.Post.ContentType {
	case models.ContentTypeCarousel:
		containerID, err = c.createCarouselContainer(ctx, req.Account.ExternalAccountID, caption, req.Media, accessToken)
	default:
		containerID, err = c.createContainer(ctx, req.Account.ExternalAccountID, caption, req.Post.ContentType, req.Media[0], false, accessToken)
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := c.publishContainer(ctx, req.Account.ExternalAccountID, containerID, accessToken)
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		PlatformPostID: mediaID,
		PlatformURL:    fmt.Sprintf("https://www.instagram.com/p/%s/", mediaID),
	}, nil
}

func (c *InstagramClient) createContainer(ctx context.Context, accountID, caption, contentType string, asset *models.MediaAsset, carouselItem bool, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", instagramGraphURL, accountID)

	payload := map[string]any{
		"access_token": accessToken,
	}
	if asset.IsVideo() {
		payload["video_url"] = asset.FileURL
	} else {
		payload["image_url"] = asset.FileURL
	}

	switch {
	case carouselItem:
		payload["is_carousel_item"] = true
	case contentType == models.ContentTypeReel:
		payload["media_type"] = "REELS"
		payload["caption"] = caption
	case contentType == models.ContentTypeStory:
		payload["media_type"] = "STORIES"
	default:
		payload["caption"] = caption
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, models.PlatformInstagram, endpoint, nil, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", NewPublishError(KindUnknown, models.PlatformInstagram, "no container ID returned", nil)
	}
	return result.ID, nil
}

func (c *InstagramClient) createCarouselContainer(ctx context.Context, accountID, caption string, media []*models.MediaAsset, accessToken string) (string, error) {
	children := make([]string, 0, len(media))
	for _, asset := range media {
		id, err := c.createContainer(ctx, accountID, "", models.ContentTypeCarousel, asset, true, accessToken)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	endpoint := fmt.Sprintf("%s/%s/media", instagramGraphURL, accountID)
	payload := map[string]any{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     children,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, models.PlatformInstagram, endpoint, nil, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", NewPublishError(KindUnknown, models.PlatformInstagram, "no carousel container ID returned", nil)
	}
	return result.ID, nil
}

func (c *InstagramClient) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", instagramGraphURL, accountID)
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, models.PlatformInstagram, endpoint, nil, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", NewPublishError(KindUnknown, models.PlatformInstagram, "no media ID returned", nil)
	}
	return result.ID, nil
}

func (c *InstagramClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/insights?metric=%s&access_token=%s",
		instagramGraphURL, platformPostID, strings.Join(metrics, ","), url.QueryEscape(accessToken))

	var payload RawInsightPayload
	if err := getJSON(ctx, models.PlatformInstagram, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *InstagramClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/insights?metric=%s&period=day&since=%d&until=%d&access_token=%s",
		instagramGraphURL, account.ExternalAccountID, strings.Join(metrics, ","),
		from.Unix(), to.Unix(), url.QueryEscape(accessToken))

	var payload RawInsightPayload
	if err := getJSON(ctx, models.PlatformInstagram, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *InstagramClient) RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		instagramGraphURL, url.QueryEscape(accessToken))

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, models.PlatformInstagram, endpoint, nil, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformInstagram, "no token returned on refresh", nil)
	}

	encrypted, err := utils.Encrypt([]byte(result.AccessToken), []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	return &TokenResult{
		AccessToken:  encrypted,
		RefreshToken: encrypted,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

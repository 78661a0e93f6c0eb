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

const facebookGraphURL = "https://graph.facebook.com/v21.0"

// FacebookClient publishes to a page feed using a page access token.
type FacebookClient struct {
	cfg config.Config
}

func NewFacebookClient(cfg config.Config) *FacebookClient {
	return &FacebookClient{cfg: cfg}
}

func (c *FacebookClient) token(account *models.Account) (string, error) {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return "", NewPublishError(KindAccountInvalid, models.PlatformFacebook, "stored token unreadable", err)
	}
	return decrypted, nil
}

func (c *FacebookClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return false, err
	}

	var result struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s?fields=id&access_token=%s",
		facebookGraphURL, account.ExternalAccountID, url.QueryEscape(accessToken))
	if err := getJSON(ctx, models.PlatformFacebook, endpoint, nil, &result); err != nil {
		return false, err
	}
	return result.ID != "", nil
}

func (c *FacebookClient) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	accessToken, err := c.token(req.Account)
	if err != nil {
		return nil, err
	}

	caption := req.Post.Caption
	if len(req.Post.Hashtags) > 0 {
		caption = caption + "\n\n" + strings.Join(req.Post.Hashtags, " ")
	}

	pageID := req.Account.ExternalAccountID

	var endpoint string
	payload := map[string]any{
		"access_token": accessToken,
	}

	switch {
	case len(req.Media) == 0:
		endpoint = fmt.Sprintf("%s/%s/feed", facebookGraphURL, pageID)
		payload["message"] = caption
	case req.Media[0].IsVideo():
		endpoint = fmt.Sprintf("%s/%s/videos", facebookGraphURL, pageID)
		payload["file_url"] = req.Media[0].FileURL
		payload["description"] = caption
	default:
		endpoint = fmt.Sprintf("%s/%s/photos", facebookGraphURL, pageID)
		payload["url"] = req.Media[0].FileURL
		payload["message"] = caption
	}

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := postJSON(ctx, models.PlatformFacebook, endpoint, nil, payload, &result); err != nil {
		return nil, err
	}

	postID := result.PostID
	if postID == "" {
		postID = result.ID
	}
	if postID == "" {
		return nil, NewPublishError(KindUnknown, models.PlatformFacebook, "no post ID returned", nil)
	}

	return &PublishResult{
		PlatformPostID: postID,
		PlatformURL:    fmt.Sprintf("https://www.facebook.com/%s", postID),
	}, nil
}

func (c *FacebookClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/insights?metric=%s&access_token=%s",
		facebookGraphURL, platformPostID, strings.Join(metrics, ","), url.QueryEscape(accessToken))

	var payload RawInsightPayload
	if err := getJSON(ctx, models.PlatformFacebook, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *FacebookClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/insights?metric=%s&period=day&since=%d&until=%d&access_token=%s",
		facebookGraphURL, account.ExternalAccountID, strings.Join(metrics, ","),
		from.Unix(), to.Unix(), url.QueryEscape(accessToken))

	var payload RawInsightPayload
	if err := getJSON(ctx, models.PlatformFacebook, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// RefreshToken exchanges the current long-lived token for a fresh one.
func (c *FacebookClient) RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		facebookGraphURL, c.cfg.FacebookClientID, c.cfg.FacebookClientSecret, url.QueryEscape(accessToken))

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := getJSON(ctx, models.PlatformFacebook, endpoint, nil, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformFacebook, "no token returned on refresh", nil)
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

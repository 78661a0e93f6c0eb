package platform

import (
	"context"
	"net/url"
	"strings"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/pkg/utils"
)

const tiktokAPIURL = "https://open.tiktokapis.com/v2"

type TiktokClient struct {
	cfg config.Config
}

func NewTiktokClient(cfg config.Config) *TiktokClient {
	return &TiktokClient{cfg: cfg}
}

func (c *TiktokClient) token(account *models.Account) (string, error) {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return "", NewPublishError(KindAccountInvalid, models.PlatformTiktok, "stored token unreadable", err)
	}
	return decrypted, nil
}

func bearer(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}

func (c *TiktokClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return false, err
	}

	var result struct {
		Data struct {
			User struct {
				OpenID string `json:"open_id"`
			} `json:"user"`
		} `json:"data"`
	}
	endpoint := tiktokAPIURL + "/user/info/?fields=open_id"
	if err := getJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), &result); err != nil {
		return false, err
	}
	return result.Data.User.OpenID != "", nil
}

func (c *TiktokClient) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	accessToken, err := c.token(req.Account)
	if err != nil {
		return nil, err
	}

	if len(req.Media) == 0 {
		return nil, NewPublishError(KindContentRejected, models.PlatformTiktok, "no media attached", nil)
	}

	caption := req.Post.Caption
	if len(req.Post.Hashtags) > 0 {
		caption = caption + " " + strings.Join(req.Post.Hashtags, " ")
	}

	// Creator info query is required by the API before every publish.
	if err := c.queryCreatorInfo(ctx, accessToken); err != nil {
		return nil, err
	}

	if req.Media[0].IsVideo() {
		return c.publishVideo(ctx, caption, req.Media[0], accessToken)
	}
	return c.publishPhotos(ctx, caption, req.Media, accessToken)
}

func (c *TiktokClient) queryCreatorInfo(ctx context.Context, accessToken string) error {
	endpoint := tiktokAPIURL + "/post/publish/creator_info/query/"
	return postJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), map[string]any{}, nil)
}

func (c *TiktokClient) publishVideo(ctx context.Context, caption string, asset *models.MediaAsset, accessToken string) (*PublishResult, error) {
	endpoint := tiktokAPIURL + "/post/publish/video/init/"
	payload := map[string]any{
		"post_info": map[string]any{
			"title":                    caption,
			"privacy_level":            "PUBLIC_TO_EVERYONE",
			"disable_duet":             false,
			"disable_comment":          false,
			"disable_stitch":           false,
			"video_cover_timestamp_ms": 1000,
		},
		"source_info": map[string]any{
			"source":    "PULL_FROM_URL",
			"video_url": asset.FileURL,
		},
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := postJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), payload, &result); err != nil {
		return nil, err
	}
	if result.Data.PublishID == "" {
		return nil, NewPublishError(KindUnknown, models.PlatformTiktok, result.Error.Message, nil)
	}

	return &PublishResult{PlatformPostID: result.Data.PublishID}, nil
}

func (c *TiktokClient) publishPhotos(ctx context.Context, caption string, media []*models.MediaAsset, accessToken string) (*PublishResult, error) {
	photoURLs := make([]string, 0, len(media))
	for _, asset := range media {
		photoURLs = append(photoURLs, asset.FileURL)
	}

	endpoint := tiktokAPIURL + "/post/publish/content/init/"
	payload := map[string]any{
		"post_info": map[string]any{
			"title":         caption,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]any{
			"source":      "PULL_FROM_URL",
			"photo_images": photoURLs,
		},
		"post_mode":  "DIRECT_POST",
		"media_type": "PHOTO",
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := postJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), payload, &result); err != nil {
		return nil, err
	}
	if result.Data.PublishID == "" {
		return nil, NewPublishError(KindUnknown, models.PlatformTiktok, result.Error.Message, nil)
	}

	return &PublishResult{PlatformPostID: result.Data.PublishID}, nil
}

// GetPostInsights reads video stats. TikTok reports flat counters, so the
// payload comes back in Totals form.
func (c *TiktokClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	endpoint := tiktokAPIURL + "/video/query/?fields=like_count,comment_count,share_count,view_count"
	payload := map[string]any{
		"filters": map[string]any{
			"video_ids": []string{platformPostID},
		},
	}

	var result struct {
		Data struct {
			Videos []struct {
				LikeCount    float64 `json:"like_count"`
				CommentCount float64 `json:"comment_count"`
				ShareCount   float64 `json:"share_count"`
				ViewCount    float64 `json:"view_count"`
			} `json:"videos"`
		} `json:"data"`
	}
	if err := postJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), payload, &result); err != nil {
		return nil, err
	}
	if len(result.Data.Videos) == 0 {
		return &RawInsightPayload{Totals: map[string]float64{}}, nil
	}

	v := result.Data.Videos[0]
	return &RawInsightPayload{
		Totals: map[string]float64{
			"likes":       v.LikeCount,
			"comments":    v.CommentCount,
			"shares":      v.ShareCount,
			"impressions": v.ViewCount,
			"reach":       v.ViewCount,
		},
	}, nil
}

func (c *TiktokClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			User struct {
				FollowerCount float64 `json:"follower_count"`
				VideoCount    float64 `json:"video_count"`
				LikesCount    float64 `json:"likes_count"`
			} `json:"user"`
		} `json:"data"`
	}
	endpoint := tiktokAPIURL + "/user/info/?fields=follower_count,video_count,likes_count"
	if err := getJSON(ctx, models.PlatformTiktok, endpoint, bearer(accessToken), &result); err != nil {
		return nil, err
	}

	return &RawInsightPayload{
		Totals: map[string]float64{
			"follower_count": result.Data.User.FollowerCount,
			"post_count":     result.Data.User.VideoCount,
			"likes":          result.Data.User.LikesCount,
		},
	}, nil
}

func (c *TiktokClient) RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error) {
	refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformTiktok, "stored refresh token unreadable", err)
	}

	data := url.Values{}
	data.Set("client_key", c.cfg.TiktokClientKey)
	data.Set("client_secret", c.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	endpoint := tiktokAPIURL + "/oauth/token/?" + data.Encode()

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := postJSON(ctx, models.PlatformTiktok, endpoint, nil, map[string]any{}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, NewPublishError(KindAccountInvalid, models.PlatformTiktok, "no token returned on refresh", nil)
	}

	encryptedAccess, err := utils.Encrypt([]byte(result.AccessToken), []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	encryptedRefresh, err := utils.Encrypt([]byte(result.RefreshToken), []byte(c.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	return &TokenResult{
		AccessToken:  encryptedAccess,
		RefreshToken: encryptedRefresh,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

func (c *TiktokClient) RevokeAccess(ctx context.Context, account *models.Account) error {
	accessToken, err := c.token(account)
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("client_key", c.cfg.TiktokClientKey)
	data.Set("client_secret", c.cfg.TiktokClientSecret)
	data.Set("token", accessToken)

	endpoint := tiktokAPIURL + "/oauth/revoke/?" + data.Encode()
	return postJSON(ctx, models.PlatformTiktok, endpoint, nil, map[string]any{}, nil)
}

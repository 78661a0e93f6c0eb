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

// WhatsappClient broadcasts posts as status updates through the Cloud API.
// There is no scheduling or insights surface; insight calls return empty
// payloads rather than errors so account sweeps stay uniform.
type WhatsappClient struct {
	cfg config.Config
}

func NewWhatsappClient(cfg config.Config) *WhatsappClient {
	return &WhatsappClient{cfg: cfg}
}

func (c *WhatsappClient) token(account *models.Account) (string, error) {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return "", NewPublishError(KindAccountInvalid, models.PlatformWhatsapp, "stored token unreadable", err)
	}
	return decrypted, nil
}

func (c *WhatsappClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	accessToken, err := c.token(account)
	if err != nil {
		return false, err
	}

	var result struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s?fields=id&access_token=%s",
		c.cfg.WhatsappAPIBaseURL, account.ExternalAccountID, url.QueryEscape(accessToken))
	if err := getJSON(ctx, models.PlatformWhatsapp, endpoint, nil, &result); err != nil {
		return false, err
	}
	return result.ID != "", nil
}

func (c *WhatsappClient) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	accessToken, err := c.token(req.Account)
	if err != nil {
		return nil, err
	}

	caption := req.Post.Caption
	if len(req.Post.Hashtags) > 0 {
		caption = caption + "\n" + strings.Join(req.Post.Hashtags, " ")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.cfg.WhatsappAPIBaseURL, req.Account.ExternalAccountID)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                "status@broadcast",
	}
	if len(req.Media) > 0 {
		mediaKind := "image"
		if req.Media[0].IsVideo() {
			mediaKind = "video"
		}
		payload["type"] = mediaKind
		payload[mediaKind] = map[string]string{
			"link":    req.Media[0].FileURL,
			"caption": caption,
		}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]any{"body": caption}
	}

	var result struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if err := postJSON(ctx, models.PlatformWhatsapp, endpoint, headers, payload, &result); err != nil {
		return nil, err
	}
	if len(result.Messages) == 0 || result.Messages[0].ID == "" {
		return nil, NewPublishError(KindUnknown, models.PlatformWhatsapp, "no message ID returned", nil)
	}

	return &PublishResult{PlatformPostID: result.Messages[0].ID}, nil
}

func (c *WhatsappClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error) {
	return &RawInsightPayload{Totals: map[string]float64{}}, nil
}

func (c *WhatsappClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error) {
	return &RawInsightPayload{Totals: map[string]float64{}}, nil
}

func (c *WhatsappClient) RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error) {
	// Cloud API system-user tokens are long-lived; nothing to rotate here.
	return &TokenResult{
		AccessToken: account.AccessToken,
		ExpiresAt:   time.Now().Add(60 * 24 * time.Hour),
	}, nil
}

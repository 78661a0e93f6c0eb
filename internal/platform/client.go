package platform

import (
	"context"
	"time"

	"github.com/vendora/socialpulse/internal/models"
)

// PublishRequest carries everything a client needs for one dispatch.
// Media is ordered by display position.
type PublishRequest struct {
	Post    *models.Post
	Account *models.Account
	Media   []*models.MediaAsset
}

type PublishResult struct {
	PlatformPostID string
	PlatformURL    string
}

type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client is the per-platform capability. One implementation per platform,
// registered in a Registry at startup.
type Client interface {
	TestConnection(ctx context.Context, account *models.Account) (bool, error)
	Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error)
	GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*RawInsightPayload, error)
	GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*RawInsightPayload, error)
	RefreshToken(ctx context.Context, account *models.Account) (*TokenResult, error)
}

// Registry maps platform names to clients. Built once at construction;
// adding a platform means registering an implementation here.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients map[string]Client) *Registry {
	return &Registry{clients: clients}
}

func (r *Registry) Get(platform string) (Client, bool) {
	c, ok := r.clients[platform]
	return c, ok
}

func (r *Registry) Platforms() []string {
	platforms := make([]string, 0, len(r.clients))
	for p := range r.clients {
		platforms = append(platforms, p)
	}
	return platforms
}

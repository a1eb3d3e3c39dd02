package slack

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

const (
	// DefaultCacheTTL is the default TTL for the user lookup cache
	DefaultCacheTTL = 10 * time.Minute
)

// cacheEntry holds a cached user with expiration
type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option is a functional option for client configuration
type Option func(*client, *[]slack.Option)

// WithCacheTTL sets the TTL for the user lookup cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client, _ *[]slack.Option) {
		c.cacheTTL = ttl
	}
}

// WithAPIURL points the client at a different Slack API endpoint
func WithAPIURL(url string) Option {
	return func(_ *client, opts *[]slack.Option) {
		*opts = append(*opts, slack.OptionAPIURL(url))
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}

	var apiOpts []slack.Option
	for _, opt := range opts {
		opt(c, &apiOpts)
	}
	c.api = slack.New(token, apiOpts...)

	return c, nil
}

// PostMessage posts a Block Kit message to a channel
func (c *client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post Slack message", goerr.V("channel_id", channelID))
	}
	return ts, nil
}

// LookupUserByEmail resolves a workspace member by email
func (c *client) LookupUserByEmail(ctx context.Context, email string) (*User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, goerr.New("email is empty")
	}

	now := time.Now()
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.user, nil
	}

	u, err := c.api.GetUserByEmailContext(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up Slack user", goerr.V("email", key))
	}

	user := &User{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{user: user, expiresAt: now.Add(c.cacheTTL)}
	c.mu.Unlock()

	return user, nil
}

package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service provides interface to Slack API for notification delivery
type Service interface {
	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)

	// LookupUserByEmail resolves a workspace member by email (with caching).
	// Used to mention the recipient of a notification.
	LookupUserByEmail(ctx context.Context, email string) (*User, error)
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}

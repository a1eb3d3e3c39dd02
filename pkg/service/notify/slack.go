package notify

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/service/slack"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
)

// Slack posts notifications into a Slack channel, mentioning the recipient when
// their email is a member of the workspace
type Slack struct {
	svc       slack.Service
	channelID string
	baseURL   string
}

var _ interfaces.NotificationSender = (*Slack)(nil)

// NewSlack creates a Slack sender. baseURL is the dashboard root used for
// deliverable links and may be empty.
func NewSlack(svc slack.Service, channelID, baseURL string) (*Slack, error) {
	if svc == nil {
		return nil, goerr.New("slack service is required")
	}
	if channelID == "" {
		return nil, goerr.New("slack channel ID is required")
	}
	return &Slack{
		svc:       svc,
		channelID: channelID,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

// Send posts n
func (s *Slack) Send(ctx context.Context, n *model.Notification, recipient *model.Profile) error {
	var mention string
	if recipient != nil && recipient.Email != "" {
		user, err := s.svc.LookupUserByEmail(ctx, recipient.Email)
		if err != nil {
			errutil.Handle(ctx, err, "failed to resolve Slack user, posting without mention")
		} else {
			mention = user.ID
		}
	}

	var link string
	if s.baseURL != "" && n.DeliverableID != "" {
		link = s.baseURL + "/deliverables/" + n.DeliverableID
	}

	blocks := slack.NotificationBlocks(n, mention, link)
	if _, err := s.svc.PostMessage(ctx, s.channelID, blocks, n.Subject); err != nil {
		return goerr.Wrap(err, "failed to post notification to Slack", goerr.V("channel_id", s.channelID))
	}
	return nil
}

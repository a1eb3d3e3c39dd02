package slack

import (
	"fmt"
	"unicode/utf8"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/slack-go/slack"
)

const (
	maxHeaderChars = 150
	maxSectionLen  = 3000

	openDeliverableActionID = "nexaflow_open_deliverable"
	notificationBlockID     = "nexaflow_notification"
)

// NotificationBlocks renders a notification as Block Kit blocks. mentionUserID and
// deliverableURL are optional.
func NotificationBlocks(n *model.Notification, mentionUserID, deliverableURL string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, truncateRunes(n.Subject, maxHeaderChars), true, false),
		),
	}

	body := n.Body
	if mentionUserID != "" {
		body = fmt.Sprintf("<@%s> %s", mentionUserID, body)
	}
	if body != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateRunes(body, maxSectionLen), false, false),
			nil, nil,
		))
	}

	if n.DeliverableID != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Deliverable `%s` in project `%s`", n.DeliverableID, n.ProjectID), false, false),
		))
	}

	if deliverableURL != "" {
		btn := slack.NewButtonBlockElement(openDeliverableActionID, n.DeliverableID,
			slack.NewTextBlockObject(slack.PlainTextType, "Open deliverable", true, false),
		)
		btn.URL = deliverableURL
		blocks = append(blocks, slack.NewActionBlock(notificationBlockID, btn))
	}

	return blocks
}

// truncateRunes cuts s to at most max characters, ending with an ellipsis when cut
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

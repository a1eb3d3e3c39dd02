package notify

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
)

// Message is a simulated email or WhatsApp message
type Message struct {
	Channel types.NotificationChannel
	To      string
	Subject string
	Body    string
	SentAt  time.Time
}

// Outbox records messages for channels without a real gateway. Messages are
// logged and kept in memory.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

// NewOutbox creates an empty outbox
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Messages returns a copy of the recorded messages, oldest first
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := make([]Message, len(o.messages))
	copy(result, o.messages)
	return result
}

func (o *Outbox) record(ctx context.Context, msg Message) {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()

	logging.From(ctx).Info("simulated message sent",
		"channel", msg.Channel,
		"to", msg.To,
		"subject", msg.Subject,
	)
}

// Email returns a sender that simulates email delivery
func (o *Outbox) Email() interfaces.NotificationSender {
	return &simulated{outbox: o, channel: types.NotificationChannelEmail}
}

// WhatsApp returns a sender that simulates WhatsApp delivery
func (o *Outbox) WhatsApp() interfaces.NotificationSender {
	return &simulated{outbox: o, channel: types.NotificationChannelWhatsApp}
}

type simulated struct {
	outbox  *Outbox
	channel types.NotificationChannel
}

func (s *simulated) Send(ctx context.Context, n *model.Notification, recipient *model.Profile) error {
	if recipient == nil {
		return goerr.New("recipient is required", goerr.V("channel", s.channel))
	}

	to := recipient.Email
	if s.channel == types.NotificationChannelWhatsApp {
		to = model.NormalizePhone(recipient.Phone)
	}
	if to == "" {
		return goerr.New("recipient has no address for channel",
			goerr.V("channel", s.channel), goerr.V("recipient_id", recipient.ID))
	}

	s.outbox.record(ctx, Message{
		Channel: s.channel,
		To:      to,
		Subject: n.Subject,
		Body:    n.Body,
		SentAt:  time.Now().UTC(),
	})
	return nil
}

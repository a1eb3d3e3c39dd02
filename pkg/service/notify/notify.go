package notify

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

// ErrChannelNotConfigured is returned when no sender is registered for a channel
var ErrChannelNotConfigured = goerr.New("notification channel is not configured")

// Dispatcher routes a notification to the sender of its channel
type Dispatcher struct {
	senders map[types.NotificationChannel]interfaces.NotificationSender
}

var _ interfaces.NotificationSender = (*Dispatcher)(nil)

// Option registers senders on the dispatcher
type Option func(*Dispatcher)

// WithSender registers sender for channel, replacing any previous one
func WithSender(channel types.NotificationChannel, sender interfaces.NotificationSender) Option {
	return func(d *Dispatcher) {
		d.senders[channel] = sender
	}
}

// New creates a dispatcher. In-app delivery is always available.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		senders: map[types.NotificationChannel]interfaces.NotificationSender{
			types.NotificationChannelInApp: InApp{},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers n on its channel
func (d *Dispatcher) Send(ctx context.Context, n *model.Notification, recipient *model.Profile) error {
	channel := n.Channel.Normalize()
	sender, ok := d.senders[channel]
	if !ok {
		metrics.NotificationsTotal.WithLabelValues(channel.String(), metrics.ResultSkipped).Inc()
		return goerr.Wrap(ErrChannelNotConfigured, "no sender for channel",
			goerr.V("channel", channel), goerr.V("notification_id", n.ID))
	}

	if err := sender.Send(ctx, n, recipient); err != nil {
		metrics.NotificationsTotal.WithLabelValues(channel.String(), metrics.ResultError).Inc()
		return goerr.Wrap(err, "failed to send notification",
			goerr.V("channel", channel), goerr.V("notification_id", n.ID))
	}

	metrics.NotificationsTotal.WithLabelValues(channel.String(), metrics.ResultOK).Inc()
	return nil
}

// InApp leaves the notification in the store for the dashboard to read
type InApp struct{}

// Send is a no-op; marking the notification sent makes it visible in the app
func (InApp) Send(context.Context, *model.Notification, *model.Profile) error {
	return nil
}

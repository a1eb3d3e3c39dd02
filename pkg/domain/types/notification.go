package types

import "fmt"

// NotificationChannel is a delivery route for notifications
type NotificationChannel string

const (
	NotificationChannelInApp    NotificationChannel = "in-app"
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
	NotificationChannelSlack    NotificationChannel = "slack"
)

// AllNotificationChannels returns all valid notification channels
func AllNotificationChannels() []NotificationChannel {
	return []NotificationChannel{
		NotificationChannelInApp,
		NotificationChannelEmail,
		NotificationChannelWhatsApp,
		NotificationChannelSlack,
	}
}

// IsValid checks if the notification channel is valid
func (c NotificationChannel) IsValid() bool {
	switch c {
	case NotificationChannelInApp,
		NotificationChannelEmail,
		NotificationChannelWhatsApp,
		NotificationChannelSlack:
		return true
	default:
		return false
	}
}

// Normalize returns the channel, treating empty as in-app delivery.
func (c NotificationChannel) Normalize() NotificationChannel {
	if c == "" {
		return NotificationChannelInApp
	}
	return c
}

// String returns the string representation of the notification channel
func (c NotificationChannel) String() string {
	return string(c)
}

// ParseNotificationChannel parses a string into a NotificationChannel
func ParseNotificationChannel(s string) (NotificationChannel, error) {
	c := NotificationChannel(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid notification channel: %s", s)
	}
	return c, nil
}

// NotificationStatus tracks delivery of a queued notification
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// IsValid checks if the notification status is valid
func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationStatusPending,
		NotificationStatusSent,
		NotificationStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notification status
func (s NotificationStatus) String() string {
	return string(s)
}

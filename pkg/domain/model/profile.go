package model

import (
	"strings"
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Profile is a NexaFlow user
type Profile struct {
	ID            string
	Name          string
	Email         string
	Phone         string // E.164, used to identify WhatsApp senders
	Role          types.Role
	NotifyChannel types.NotificationChannel
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizePhone strips formatting characters so that "+1 (555) 010-2000" and
// "+15550102000" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

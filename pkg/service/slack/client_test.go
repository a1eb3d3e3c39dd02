package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func newFakeSlack(t *testing.T, lookups *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": r.FormValue("channel"),
			"ts":      "1700000000.000100",
		})
	})
	mux.HandleFunc("/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		gt.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.FormValue("email") != "pm@example.com" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "users_not_found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"user": map[string]any{
				"id":        "U123",
				"name":      "pm",
				"real_name": "Project Manager",
				"profile":   map[string]any{"email": "pm@example.com"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientWithFakeAPI(t *testing.T) {
	ctx := context.Background()
	var lookups atomic.Int32
	srv := newFakeSlack(t, &lookups)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"), slack.WithCacheTTL(time.Minute))
	gt.NoError(t, err).Required()

	t.Run("PostMessage returns timestamp", func(t *testing.T) {
		blocks := slack.NotificationBlocks(&model.Notification{Subject: "Approved", Body: "ok"}, "", "")
		ts, err := svc.PostMessage(ctx, "C123", blocks, "Approved")
		gt.NoError(t, err).Required()
		gt.S(t, ts).Equal("1700000000.000100")
	})

	t.Run("LookupUserByEmail caches results", func(t *testing.T) {
		u, err := svc.LookupUserByEmail(ctx, " PM@example.com ")
		gt.NoError(t, err).Required()
		gt.S(t, u.ID).Equal("U123")
		gt.S(t, u.RealName).Equal("Project Manager")

		_, err = svc.LookupUserByEmail(ctx, "pm@example.com")
		gt.NoError(t, err)
		gt.N(t, lookups.Load()).Equal(int32(1))
	})

	t.Run("LookupUserByEmail fails for unknown member", func(t *testing.T) {
		_, err := svc.LookupUserByEmail(ctx, "nobody@example.com")
		gt.Error(t, err)
	})

	t.Run("LookupUserByEmail rejects empty email", func(t *testing.T) {
		_, err := svc.LookupUserByEmail(ctx, "  ")
		gt.Error(t, err)
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if token == "" || channelID == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN or TEST_SLACK_CHANNEL_ID is not set")
	}

	ctx := context.Background()
	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	n := &model.Notification{
		Subject:       "NexaFlow integration test",
		Body:          "This message was posted by the Slack integration test.",
		ProjectID:     "integration",
		DeliverableID: "integration",
	}
	ts, err := svc.PostMessage(ctx, channelID, slack.NotificationBlocks(n, "", ""), n.Subject)
	gt.NoError(t, err).Required()
	gt.S(t, ts).NotEqual("")
}

func TestNotificationBlocks(t *testing.T) {
	n := &model.Notification{
		Subject:       "Deliverable approved",
		Body:          "Logo v2 was approved",
		ProjectID:     "p1",
		DeliverableID: "d1",
	}

	t.Run("full message", func(t *testing.T) {
		blocks := slack.NotificationBlocks(n, "U123", "https://app.example.com/deliverables/d1")
		gt.A(t, blocks).Length(4)
		gt.V(t, blocks[0].BlockType()).Equal(goslack.MBTHeader)
		gt.V(t, blocks[3].BlockType()).Equal(goslack.MBTAction)

		section := blocks[1].(*goslack.SectionBlock)
		gt.S(t, section.Text.Text).Equal("<@U123> Logo v2 was approved")

		actions := blocks[3].(*goslack.ActionBlock)
		btn := actions.Elements.ElementSet[0].(*goslack.ButtonBlockElement)
		gt.S(t, btn.URL).Equal("https://app.example.com/deliverables/d1")
	})

	t.Run("minimal message", func(t *testing.T) {
		blocks := slack.NotificationBlocks(&model.Notification{Subject: "Hi"}, "", "")
		gt.A(t, blocks).Length(1)
	})
}

func TestTruncateRunes(t *testing.T) {
	gt.S(t, slack.TruncateRunes("short", 10)).Equal("short")
	gt.S(t, slack.TruncateRunes("承認されました", 4)).Equal("承認さ…")
}

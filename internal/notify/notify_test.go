package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestFromConfig(t *testing.T) {
	log := quietLog()

	if got := FromConfig(config.NotifyConfig{}, log); len(got) != 0 {
		t.Errorf("unconfigured targets produced %d notifiers", len(got))
	}

	cfg := config.NotifyConfig{
		Slack:   config.SlackConfig{Token: "xoxb-token", Channel: "#eng"},
		Discord: config.DiscordConfig{Token: "bot-token", ChannelID: "123"},
	}
	got := FromConfig(cfg, log)
	if len(got) != 2 {
		t.Fatalf("len(notifiers) = %d, want 2", len(got))
	}
	if got[0].Name() != "slack" || got[1].Name() != "discord" {
		t.Errorf("notifiers = %s, %s", got[0].Name(), got[1].Name())
	}
}

func TestFromConfig_PartialTargetIgnored(t *testing.T) {
	cfg := config.NotifyConfig{
		Slack: config.SlackConfig{Token: "xoxb-token"}, // no channel
	}
	if got := FromConfig(cfg, quietLog()); len(got) != 0 {
		t.Errorf("slack without a channel produced %d notifiers", len(got))
	}
}

type stubNotifier struct {
	name string
	err  error
	sent []string
}

func (s *stubNotifier) Name() string { return s.name }
func (s *stubNotifier) Send(_ context.Context, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

func TestBroadcast_ContinuesPastFailures(t *testing.T) {
	failing := &stubNotifier{name: "a", err: errors.New("down")}
	healthy := &stubNotifier{name: "b"}

	Broadcast(context.Background(), []Notifier{failing, healthy}, "hello", quietLog())

	if len(failing.sent) != 1 || len(healthy.sent) != 1 {
		t.Errorf("sends = %d/%d, want 1/1", len(failing.sent), len(healthy.sent))
	}
	if healthy.sent[0] != "hello" {
		t.Errorf("text = %q", healthy.sent[0])
	}
}

func TestSyncSummary(t *testing.T) {
	resp := &api.SyncResponse{
		SessionsCreated: 2, SessionsUpdated: 1,
		CommitsCreated: 5, CommitsSkipped: 3,
	}
	got := SyncSummary("jane@example.com", api.SyncIncremental, resp, nil)
	for _, want := range []string{"incremental", "jane@example.com", "2 created", "1 updated", "5 created", "3 skipped"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}

	got = SyncSummary("jane@example.com", api.SyncBackfill, nil, errors.New("store unreachable"))
	if !strings.Contains(got, "failed") || !strings.Contains(got, "store unreachable") {
		t.Errorf("failure summary = %q", got)
	}

	got = SyncSummary("jane@example.com", api.SyncIncremental, nil, nil)
	if !strings.Contains(got, "nothing to collect") {
		t.Errorf("empty summary = %q", got)
	}
}

package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
)

type fakeNotifier struct {
	platform string
	err      error
	mu       sync.Mutex
	alerts   []*Alert
}

func (f *fakeNotifier) Platform() string { return f.platform }

func (f *fakeNotifier) Notify(_ context.Context, a *Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

func (f *fakeNotifier) sent() []*Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Alert(nil), f.alerts...)
}

type summary string

func (s summary) Summary() string { return string(s) }

func TestAlertFromMessage(t *testing.T) {
	msg := agent.NewMessage("orchestrator", RelayAgentID, agent.MessageStatusUpdate,
		summary("Project risk level is critical"), agent.PriorityCritical)
	a := AlertFromMessage(msg)
	assert.Equal(t, "status update from orchestrator", a.Title)
	assert.Equal(t, "Project risk level is critical", a.Body)
	assert.Equal(t, agent.PriorityCritical, a.Priority)
	assert.Equal(t, "orchestrator", a.Source)

	msg = agent.NewMessage("risk-detector", RelayAgentID, agent.MessageRiskAlert,
		map[string]int{"risks": 2}, agent.PriorityHigh)
	assert.JSONEq(t, `{"risks":2}`, AlertFromMessage(msg).Body)

	msg = agent.NewMessage("a", "b", agent.MessageTimelineUpdate, nil, "")
	a = AlertFromMessage(msg)
	assert.Empty(t, a.Body)
	assert.Equal(t, "[medium] timeline update from a", text(a, ""))
}

func TestMultiCollectsFailures(t *testing.T) {
	ok := &fakeNotifier{platform: "ok"}
	bad := &fakeNotifier{platform: "bad", err: errors.New("down")}
	m := Multi{bad, ok}

	err := m.Notify(context.Background(), &Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Len(t, ok.sent(), 1)
	assert.Len(t, bad.sent(), 1)
	assert.Equal(t, "bad,ok", m.Platform())

	assert.NoError(t, Multi{}.Notify(context.Background(), &Alert{}))
}

func TestRelayForwardsDeliveredMessages(t *testing.T) {
	n := &fakeNotifier{platform: "fake"}
	dir := agent.NewDirectory(zap.NewNop())
	relay := NewRelayAgent(n, agent.PriorityHigh, dir, zap.NewNop())
	dir.Register(relay)

	ctx := context.Background()
	require.NoError(t, dir.Deliver(ctx, agent.NewMessage("x", RelayAgentID, agent.MessageStatusUpdate, "quiet", agent.PriorityLow)))
	require.NoError(t, dir.Deliver(ctx, agent.NewMessage("x", RelayAgentID, agent.MessageStatusUpdate, "loud", agent.PriorityCritical)))

	assert.Len(t, relay.Inbox(), 2)
	sent := n.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "loud", sent[0].Body)
}

func TestRelayNotifierFailure(t *testing.T) {
	n := &fakeNotifier{platform: "fake", err: errors.New("rate limited")}
	dir := agent.NewDirectory(zap.NewNop())
	relay := NewRelayAgent(n, "", dir, zap.NewNop())
	dir.Register(relay)

	err := dir.Deliver(context.Background(), agent.NewMessage("x", RelayAgentID, agent.MessageRiskAlert, "r", agent.PriorityLow))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Len(t, relay.Inbox(), 1)
}

func TestRelayProcess(t *testing.T) {
	n := &fakeNotifier{platform: "fake"}
	relay := NewRelayAgent(n, "", nil, zap.NewNop())

	out, err := relay.Process(context.Background(), &Alert{Title: "direct"})
	require.NoError(t, err)
	assert.Equal(t, "direct", out.(*Alert).Title)
	assert.Equal(t, agent.StatusActive, relay.State().Status)

	_, err = relay.Process(context.Background(), "nope")
	assert.Error(t, err)

	empty := NewRelayAgent(nil, "", nil, zap.NewNop())
	_, err = empty.Process(context.Background(), &Alert{})
	assert.Error(t, err)
	assert.Equal(t, agent.StatusError, empty.State().Status)
}

func TestSlackNotifierPostsMessage(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		form = map[string]string{
			"channel":  r.PostForm.Get("channel"),
			"text":     r.PostForm.Get("text"),
			"username": r.PostForm.Get("username"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	client := slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
	n := NewSlackNotifier("xoxb-test", "C1", zap.NewNop(),
		WithSlackClient(client), WithSlackPersona("Pulse", ":rotating_light:"))

	err := n.Notify(context.Background(), &Alert{Title: "status update from orchestrator", Body: "cycle", Priority: agent.PriorityCritical})
	require.NoError(t, err)
	assert.Equal(t, "C1", form["channel"])
	assert.Equal(t, "*[critical] status update from orchestrator*\ncycle", form["text"])
	assert.Equal(t, "Pulse", form["username"])
}

func TestSlackNotifierAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	n := NewSlackNotifier("xoxb-test", "C404", nil,
		WithSlackClient(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))))
	err := n.Notify(context.Background(), &Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

type fakeSession struct {
	channel string
	content string
	err     error
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func TestDiscordNotifier(t *testing.T) {
	s := &fakeSession{}
	n := newDiscordNotifier(s, "123", zap.NewNop())
	require.NoError(t, n.Notify(context.Background(), &Alert{Title: "risk alert from risk-detector", Priority: agent.PriorityHigh}))
	assert.Equal(t, "123", s.channel)
	assert.Equal(t, "**[high] risk alert from risk-detector**", s.content)

	s.err = errors.New("missing access")
	err := n.Notify(context.Background(), &Alert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord send")
}

func TestNewDiscordNotifier(t *testing.T) {
	n, err := NewDiscordNotifier("token", "123", nil)
	require.NoError(t, err)
	assert.Equal(t, "discord", n.Platform())
}

// Package notify forwards agent messages to chat platforms.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nidhogg/pulse/internal/agent"
)

// Alert is a platform-neutral notification.
type Alert struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Source   string         `json:"source"`
	Priority agent.Priority `json:"priority"`
}

// Notifier delivers alerts to one platform.
type Notifier interface {
	Platform() string
	Notify(ctx context.Context, alert *Alert) error
}

// Summarizer is implemented by message payloads that know how to describe
// themselves in one line per reason.
type Summarizer interface {
	Summary() string
}

// AlertFromMessage renders msg as an alert. Payloads without a Summary are
// rendered as indented JSON.
func AlertFromMessage(msg *agent.Message) *Alert {
	title := strings.ReplaceAll(string(msg.Type), "_", " ")
	a := &Alert{
		Title:    fmt.Sprintf("%s from %s", title, msg.From),
		Source:   msg.From,
		Priority: msg.Priority,
	}
	switch d := msg.Data.(type) {
	case nil:
	case Summarizer:
		a.Body = d.Summary()
	case string:
		a.Body = d
	default:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			a.Body = fmt.Sprintf("%v", d)
		} else {
			a.Body = string(data)
		}
	}
	return a
}

// text formats an alert as chat markdown. bold wraps the heading.
func text(a *Alert, bold string) string {
	heading := fmt.Sprintf("%s[%s] %s%s", bold, a.Priority, a.Title, bold)
	if a.Body == "" {
		return heading
	}
	return heading + "\n" + a.Body
}

// Multi delivers each alert to every notifier. One platform failing does not
// stop the others; the failures are returned joined.
type Multi []Notifier

func (m Multi) Platform() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Platform())
	}
	return strings.Join(names, ",")
}

func (m Multi) Notify(ctx context.Context, alert *Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Platform(), err))
		}
	}
	return errors.Join(errs...)
}

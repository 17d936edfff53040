package agent

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MessageType classifies an inter-agent message.
type MessageType string

const (
	MessageStatusUpdate     MessageType = "status_update"
	MessageRiskAlert        MessageType = "risk_alert"
	MessageResourceRequest  MessageType = "resource_request"
	MessageDependencyChange MessageType = "dependency_change"
	MessageTimelineUpdate   MessageType = "timeline_update"
)

// Priority ranks a message for its recipient.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is used when a sender leaves the priority empty.
const DefaultPriority = PriorityMedium

// Message is a message passed between agents. Identity is the ID; there is
// no ordering guarantee across different recipients.
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      MessageType `json:"type"`
	Data      any         `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	Priority  Priority    `json:"priority"`
}

var lastStamp atomic.Int64

// nextStamp returns a process-wide, strictly increasing nanosecond stamp.
func nextStamp() int64 {
	for {
		now := time.Now().UnixNano()
		prev := lastStamp.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastStamp.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// NewMessage builds an envelope with a fresh "{from}-{stamp}" id.
func NewMessage(from, to string, typ MessageType, data any, priority Priority) *Message {
	if priority == "" {
		priority = DefaultPriority
	}
	return &Message{
		ID:        fmt.Sprintf("%s-%d", from, nextStamp()),
		From:      from,
		To:        to,
		Type:      typ,
		Data:      data,
		Timestamp: time.Now(),
		Priority:  priority,
	}
}

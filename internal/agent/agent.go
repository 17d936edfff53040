// Package agent holds the agent contract, the shared agent directory and the
// message envelope agents use to notify each other.
package agent

import (
	"context"
	"fmt"
)

// Agent is a unit of analysis work. Concrete agents embed *Base for identity,
// state, inbox and messaging, and supply Process and HandleMessage.
type Agent interface {
	ID() string
	Name() string

	// Process runs the agent's analysis. Input and result types are
	// capability specific.
	Process(ctx context.Context, input any) (any, error)

	// HandleMessage reacts to a delivered message. Errors are logged by the
	// receive path and never fail the sender.
	HandleMessage(ctx context.Context, msg *Message) error

	// State returns a snapshot copy.
	State() State

	Enqueue(msg *Message)
	Inbox() []*Message
}

// Receive runs a recipient's receive path: the message is retained in the
// inbox, then handed to HandleMessage. A panicking handler is converted into
// an error.
func Receive(ctx context.Context, a Agent, msg *Message) (err error) {
	a.Enqueue(msg)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s: handle message %s panicked: %v", a.ID(), msg.ID, r)
		}
	}()
	if err := a.HandleMessage(ctx, msg); err != nil {
		return fmt.Errorf("agent %s: handle message %s: %w", a.ID(), msg.ID, err)
	}
	return nil
}

package agent

import "time"

// Status represents an agent's current state.
type Status string

const (
	StatusActive     Status = "active"
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

// State is the self-reported condition of an agent. Only the owning agent
// mutates it; everyone else sees copies.
type State struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	LastUpdate  time.Time `json:"last_update"`
	Confidence  int       `json:"confidence"`
	CurrentTask string    `json:"current_task,omitempty"`
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

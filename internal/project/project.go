// Package project defines the project data handed to the analysis agents.
package project

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task status values.
const (
	TaskPending    = "pending"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"
	TaskBlocked    = "blocked"
)

// Data is everything one orchestration call looks at. It is not modified
// while an orchestration is running.
type Data struct {
	Project            Project            `json:"project"`
	Tasks              []Task             `json:"tasks"`
	Teams              []Team             `json:"teams"`
	Dependencies       []Dependency       `json:"dependencies"`
	Resources          []Resource         `json:"resources"`
	SkillRequirements  []SkillRequirement `json:"skill_requirements"`
	HistoricalProjects []Project          `json:"historical_projects,omitempty"`
}

// Project is the project metadata.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartDate   Date   `json:"start_date,omitempty"`
	EndDate     Date   `json:"end_date,omitempty"`
}

// Task is a unit of planned work.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	Assignee       string   `json:"assignee,omitempty"`
	AssigneeID     string   `json:"assignee_id,omitempty"`
	TeamID         string   `json:"team_id,omitempty"`
	StartDate      Date     `json:"start_date,omitempty"`
	EndDate        Date     `json:"end_date,omitempty"`
	Progress       int      `json:"progress"`
	Dependencies   []string `json:"dependencies,omitempty"`
	EstimatedHours float64  `json:"estimated_hours"`
	ActualHours    float64  `json:"actual_hours"`
}

// DurationDays is the planned length of the task in whole days, at least 1.
func (t Task) DurationDays() int {
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return 1
	}
	d := int(t.EndDate.Sub(t.StartDate.Time).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// Team groups people and tasks.
type Team struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	WorkloadUtilization float64  `json:"workload_utilization"`
	TaskIDs             []string `json:"task_ids,omitempty"`
}

// Dependency says that To cannot proceed until From finishes, plus Lag days.
type Dependency struct {
	ID   string `json:"id"`
	From string `json:"from_task"`
	To   string `json:"to_task"`
	Type string `json:"type,omitempty"`
	Lag  int    `json:"lag"`
}

// Resource is a person that can be assigned work.
type Resource struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	TeamID       string   `json:"team_id,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Capacity     float64  `json:"capacity"`
	Availability string   `json:"availability,omitempty"`
}

// SkillRequirement pins a required skill to a task.
type SkillRequirement struct {
	TaskID string `json:"task_id"`
	Skill  string `json:"skill"`
}

// Date is a calendar date that accepts either "2006-01-02" or RFC 3339 in JSON.
type Date struct {
	time.Time
}

// NewDate parses s as a date; it panics on malformed input and is meant for
// literals.
func NewDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDate parses "2006-01-02" or RFC 3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TasksForTeam returns the tasks owned by teamID, in input order.
func (d *Data) TasksForTeam(teamID string) []Task {
	var out []Task
	for _, t := range d.Tasks {
		if t.TeamID == teamID {
			out = append(out, t)
		}
	}
	return out
}

// ResourcesForTeam returns the people on teamID, in input order.
func (d *Data) ResourcesForTeam(teamID string) []Resource {
	var out []Resource
	for _, r := range d.Resources {
		if r.TeamID == teamID {
			out = append(out, r)
		}
	}
	return out
}

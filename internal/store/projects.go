package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/project"
)

// SaveProject replaces the stored copy of d in one transaction. Child rows
// keep their input order.
func (s *Store) SaveProject(ctx context.Context, d *project.Data) error {
	p := d.Project
	if p.ID == "" {
		return fmt.Errorf("save project: empty id")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO projects (id, name, description, start_date, end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Description, dateArg(p.StartDate), dateArg(p.EndDate),
	)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}

	batch := &pgx.Batch{}
	for _, table := range []string{"tasks", "teams", "resources", "dependencies", "skill_requirements"} {
		batch.Queue(`DELETE FROM `+table+` WHERE project_id = $1`, p.ID)
	}
	for i, t := range d.Tasks {
		batch.Queue(`
			INSERT INTO tasks (project_id, id, position, title, description, status, priority,
				assignee, assignee_id, team_id, start_date, end_date, progress, dependencies,
				estimated_hours, actual_hours)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			p.ID, t.ID, i, t.Title, t.Description, t.Status, t.Priority,
			t.Assignee, t.AssigneeID, t.TeamID, dateArg(t.StartDate), dateArg(t.EndDate),
			t.Progress, orEmpty(t.Dependencies), t.EstimatedHours, t.ActualHours)
	}
	for i, t := range d.Teams {
		batch.Queue(`
			INSERT INTO teams (project_id, id, position, name, workload_utilization, task_ids)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, t.ID, i, t.Name, t.WorkloadUtilization, orEmpty(t.TaskIDs))
	}
	for i, r := range d.Resources {
		batch.Queue(`
			INSERT INTO resources (project_id, id, position, name, team_id, skills, capacity, availability)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, r.ID, i, r.Name, r.TeamID, orEmpty(r.Skills), r.Capacity, r.Availability)
	}
	for i, dep := range d.Dependencies {
		batch.Queue(`
			INSERT INTO dependencies (project_id, position, id, from_task, to_task, type, lag)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, i, dep.ID, dep.From, dep.To, dep.Type, dep.Lag)
	}
	for i, sr := range d.SkillRequirements {
		batch.Queue(`
			INSERT INTO skill_requirements (project_id, position, task_id, skill)
			VALUES ($1, $2, $3, $4)`,
			p.ID, i, sr.TaskID, sr.Skill)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save project %s rows: %w", p.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit project %s: %w", p.ID, err)
	}
	s.logger.Debug("project saved",
		zap.String("project", p.ID),
		zap.Int("tasks", len(d.Tasks)))
	return nil
}

// LoadProject reads a project and everything attached to it.
func (s *Store) LoadProject(ctx context.Context, id string) (*project.Data, error) {
	var (
		d          project.Data
		start, end *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, start_date, end_date
		FROM projects WHERE id = $1`, id,
	).Scan(&d.Project.ID, &d.Project.Name, &d.Project.Description, &start, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load project %s: %w", id, ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	d.Project.StartDate, d.Project.EndDate = dateFrom(start), dateFrom(end)

	if d.Tasks, err = s.loadTasks(ctx, id); err != nil {
		return nil, err
	}
	if d.Teams, err = s.loadTeams(ctx, id); err != nil {
		return nil, err
	}
	if d.Resources, err = s.loadResources(ctx, id); err != nil {
		return nil, err
	}
	if d.Dependencies, err = s.loadDependencies(ctx, id); err != nil {
		return nil, err
	}
	if d.SkillRequirements, err = s.loadSkills(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) loadTasks(ctx context.Context, projectID string) ([]project.Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, status, priority, assignee, assignee_id, team_id,
		       start_date, end_date, progress, dependencies, estimated_hours, actual_hours
		FROM tasks WHERE project_id = $1
		ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	tasks := []project.Task{}
	for rows.Next() {
		var (
			t          project.Task
			start, end *time.Time
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.Assignee, &t.AssigneeID, &t.TeamID, &start, &end, &t.Progress,
			&t.Dependencies, &t.EstimatedHours, &t.ActualHours); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.StartDate, t.EndDate = dateFrom(start), dateFrom(end)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) loadTeams(ctx context.Context, projectID string) ([]project.Team, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, workload_utilization, task_ids
		FROM teams WHERE project_id = $1
		ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	teams := []project.Team{}
	for rows.Next() {
		var t project.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.WorkloadUtilization, &t.TaskIDs); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *Store) loadResources(ctx context.Context, projectID string) ([]project.Resource, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, team_id, skills, capacity, availability
		FROM resources WHERE project_id = $1
		ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	defer rows.Close()

	resources := []project.Resource{}
	for rows.Next() {
		var r project.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.TeamID, &r.Skills, &r.Capacity, &r.Availability); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *Store) loadDependencies(ctx context.Context, projectID string) ([]project.Dependency, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, from_task, to_task, type, lag
		FROM dependencies WHERE project_id = $1
		ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	defer rows.Close()

	deps := []project.Dependency{}
	for rows.Next() {
		var dep project.Dependency
		if err := rows.Scan(&dep.ID, &dep.From, &dep.To, &dep.Type, &dep.Lag); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

func (s *Store) loadSkills(ctx context.Context, projectID string) ([]project.SkillRequirement, error) {
	rows, err := s.db.Query(ctx, `
		SELECT task_id, skill
		FROM skill_requirements WHERE project_id = $1
		ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load skill requirements: %w", err)
	}
	defer rows.Close()

	skills := []project.SkillRequirement{}
	for rows.Next() {
		var sr project.SkillRequirement
		if err := rows.Scan(&sr.TaskID, &sr.Skill); err != nil {
			return nil, fmt.Errorf("scan skill requirement: %w", err)
		}
		skills = append(skills, sr)
	}
	return skills, rows.Err()
}

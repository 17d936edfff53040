// Package graph mirrors project task graphs into Neo4j so that dependency
// chains can be queried across runs.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/project"
)

// Store handles Neo4j operations for the task graph.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a Neo4j graph store. An empty user connects without
// authentication.
func NewStore(uri, user, password string, logger *zap.Logger) (*Store, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{driver: driver, logger: logger}, nil
}

// Close shuts down the Neo4j driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// edge says task To depends on task From.
type edge struct {
	from, to string
	lag      int
}

// edges merges explicit dependencies with the ones listed on tasks. An
// explicit dependency wins for its lag.
func edges(d *project.Data) []edge {
	seen := make(map[[2]string]bool)
	var out []edge
	for _, dep := range d.Dependencies {
		k := [2]string{dep.From, dep.To}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, edge{from: dep.From, to: dep.To, lag: dep.Lag})
	}
	for _, t := range d.Tasks {
		for _, from := range t.Dependencies {
			k := [2]string{from, t.ID}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, edge{from: from, to: t.ID})
		}
	}
	return out
}

// SyncProject replaces the stored graph for d's project with its current
// tasks and dependencies. Edges to unknown tasks are skipped.
func (s *Store) SyncProject(ctx context.Context, d *project.Data) error {
	projectID := d.Project.ID
	if projectID == "" {
		return fmt.Errorf("sync project: empty id")
	}

	tasks := make([]map[string]any, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		tasks = append(tasks, map[string]any{
			"id":     t.ID,
			"title":  t.Title,
			"status": t.Status,
			"teamId": t.TeamID,
		})
	}
	deps := edges(d)
	rels := make([]map[string]any, 0, len(deps))
	for _, e := range deps {
		rels = append(rels, map[string]any{"from": e.from, "to": e.to, "lag": e.lag})
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			`MATCH (t:Task {project_id: $project}) DETACH DELETE t`,
			map[string]any{"project": projectID}); err != nil {
			return nil, fmt.Errorf("clear tasks: %w", err)
		}
		if _, err := tx.Run(ctx,
			`UNWIND $tasks AS task
			 CREATE (:Task {
				project_id: $project, id: task.id, title: task.title,
				status: task.status, team_id: task.teamId
			 })`,
			map[string]any{"project": projectID, "tasks": tasks}); err != nil {
			return nil, fmt.Errorf("create tasks: %w", err)
		}
		if _, err := tx.Run(ctx,
			`UNWIND $rels AS rel
			 MATCH (a:Task {project_id: $project, id: rel.to})
			 MATCH (b:Task {project_id: $project, id: rel.from})
			 MERGE (a)-[r:DEPENDS_ON]->(b)
			 SET r.lag = rel.lag`,
			map[string]any{"project": projectID, "rels": rels}); err != nil {
			return nil, fmt.Errorf("create dependencies: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("sync project %s: %w", projectID, err)
	}
	s.logger.Debug("task graph synced",
		zap.String("project", projectID),
		zap.Int("tasks", len(tasks)),
		zap.Int("dependencies", len(rels)))
	return nil
}

// Downstream returns the ids of every task that depends on taskID, directly
// or transitively, sorted.
func (s *Store) Downstream(ctx context.Context, projectID, taskID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (d:Task {project_id: $project})-[:DEPENDS_ON*1..]->(t:Task {project_id: $project, id: $task})
		 RETURN DISTINCT d.id AS id`,
		map[string]any{"project": projectID, "task": taskID})
	if err != nil {
		return nil, fmt.Errorf("downstream of %s: %w", taskID, err)
	}

	ids := []string{}
	for result.Next(ctx) {
		v, _ := result.Record().Get("id")
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("downstream of %s: %w", taskID, err)
	}
	sort.Strings(ids)
	return ids, nil
}

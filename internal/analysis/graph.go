package analysis

import (
	"sort"

	"github.com/nidhogg/pulse/internal/project"
)

// taskGraph is the task dependency graph, edges pointing from a prerequisite
// to the task waiting on it.
type taskGraph struct {
	order []string // task ids in input order
	tasks map[string]project.Task
	succ  map[string][]GraphEdge
	pred  map[string][]GraphEdge
	edges []GraphEdge
	// dangling counts dependencies that name an unknown task.
	dangling int
}

// buildGraph merges explicit dependencies with the ids listed on each task.
func buildGraph(tasks []project.Task, deps []project.Dependency) *taskGraph {
	g := &taskGraph{
		tasks: make(map[string]project.Task, len(tasks)),
		succ:  make(map[string][]GraphEdge),
		pred:  make(map[string][]GraphEdge),
	}
	for _, t := range tasks {
		if _, dup := g.tasks[t.ID]; dup {
			continue
		}
		g.order = append(g.order, t.ID)
		g.tasks[t.ID] = t
	}

	seen := make(map[[2]string]bool)
	add := func(from, to string, lag int) {
		if _, ok := g.tasks[from]; !ok {
			g.dangling++
			return
		}
		if _, ok := g.tasks[to]; !ok {
			g.dangling++
			return
		}
		key := [2]string{from, to}
		if seen[key] {
			return
		}
		seen[key] = true
		e := GraphEdge{From: from, To: to, Lag: lag}
		g.edges = append(g.edges, e)
		g.succ[from] = append(g.succ[from], e)
		g.pred[to] = append(g.pred[to], e)
	}
	for _, d := range deps {
		add(d.From, d.To, d.Lag)
	}
	for _, t := range tasks {
		for _, from := range t.Dependencies {
			add(from, t.ID, 0)
		}
	}
	return g
}

// cycles returns every distinct dependency cycle, each rotated to start at
// its smallest id.
func (g *taskGraph) cycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	found := make(map[string][]string)

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, e := range g.succ[id] {
			switch color[e.To] {
			case white:
				visit(e.To)
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == e.To {
						c := canonicalCycle(stack[i:])
						found[cycleKey(c)] = c
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, id := range g.order {
		if color[id] == white {
			visit(id)
		}
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, found[k])
	}
	return out
}

func canonicalCycle(path []string) []string {
	min := 0
	for i, id := range path {
		if id < path[min] {
			min = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, path[min:]...)
	return append(out, path[:min]...)
}

func cycleKey(c []string) string {
	key := ""
	for _, id := range c {
		key += id + ">"
	}
	return key
}

// topoOrder returns the tasks in Kahn order, ties broken by input order. It
// returns false when the graph has a cycle.
func (g *taskGraph) topoOrder() ([]string, bool) {
	indeg := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indeg[id] = len(g.pred[id])
	}
	var queue, out []string
	for _, id := range g.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, e := range g.succ[id] {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}
	return out, len(out) == len(g.order)
}

// schedule is the result of a critical-path pass, in days from project start.
type schedule struct {
	earliestStart  map[string]int
	earliestFinish map[string]int
	slack          map[string]int
	length         int
}

// criticalPathSchedule runs the forward and backward passes. The graph must
// be acyclic.
func (g *taskGraph) criticalPathSchedule(order []string) *schedule {
	s := &schedule{
		earliestStart:  make(map[string]int, len(order)),
		earliestFinish: make(map[string]int, len(order)),
		slack:          make(map[string]int, len(order)),
	}
	for _, id := range order {
		start := 0
		for _, e := range g.pred[id] {
			if f := s.earliestFinish[e.From] + e.Lag; f > start {
				start = f
			}
		}
		s.earliestStart[id] = start
		s.earliestFinish[id] = start + g.tasks[id].DurationDays()
		if s.earliestFinish[id] > s.length {
			s.length = s.earliestFinish[id]
		}
	}

	latestFinish := make(map[string]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		lf := s.length
		for _, e := range g.succ[id] {
			if ls := latestFinish[e.To] - g.tasks[e.To].DurationDays() - e.Lag; ls < lf {
				lf = ls
			}
		}
		latestFinish[id] = lf
		s.slack[id] = lf - s.earliestFinish[id]
	}
	return s
}

// criticalPath walks zero-slack tasks from a project start to its end.
func (g *taskGraph) criticalPath(s *schedule, order []string) []string {
	var current string
	for _, id := range order {
		if s.slack[id] == 0 && len(g.pred[id]) == 0 {
			if current == "" || s.earliestFinish[id] > s.earliestFinish[current] {
				current = id
			}
		}
	}
	var path []string
	for current != "" {
		path = append(path, current)
		next := ""
		for _, e := range g.succ[current] {
			if s.slack[e.To] == 0 && s.earliestStart[e.To] == s.earliestFinish[current]+e.Lag {
				next = e.To
				break
			}
		}
		current = next
	}
	return path
}

// reachable reports whether to can be reached from from.
func (g *taskGraph) reachable(from, to string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			return true
		}
		for _, e := range g.succ[id] {
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false
}

// Package orchestrator fans a project out to the analysis agents, folds
// their partial results into one health verdict and routes the cross-agent
// notifications that follow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/analysis"
	"github.com/nidhogg/pulse/internal/project"
)

// SenderID is the sender of messages the orchestrator originates itself.
const SenderID = "orchestrator"

var (
	// ErrNotInitialized is returned by OrchestrateProject when the capability
	// agents could not be created or the orchestrator was shut down.
	ErrNotInitialized = errors.New("orchestrator not initialized")

	// ErrAgentNotFound means a capability or team agent is not registered.
	ErrAgentNotFound = errors.New("agent not registered")
)

// CapabilityFactory builds one of the fixed capability agents.
type CapabilityFactory func(dir *agent.Directory, logger *zap.Logger) (agent.Agent, error)

// capabilities lists the capability agents in creation order.
var capabilities = []string{
	analysis.DependencyTrackerID,
	analysis.RiskDetectorID,
	analysis.TimelineAdjusterID,
	analysis.ResourceAllocatorID,
}

// DefaultCapabilities returns the factories for the built-in agents.
func DefaultCapabilities() map[string]CapabilityFactory {
	return map[string]CapabilityFactory{
		analysis.DependencyTrackerID: func(dir *agent.Directory, l *zap.Logger) (agent.Agent, error) {
			return analysis.NewDependencyTracker(dir, l), nil
		},
		analysis.RiskDetectorID: func(dir *agent.Directory, l *zap.Logger) (agent.Agent, error) {
			return analysis.NewRiskDetector(dir, l), nil
		},
		analysis.TimelineAdjusterID: func(dir *agent.Directory, l *zap.Logger) (agent.Agent, error) {
			return analysis.NewTimelineAdjuster(dir, l), nil
		},
		analysis.ResourceAllocatorID: func(dir *agent.Directory, l *zap.Logger) (agent.Agent, error) {
			return analysis.NewResourceAllocator(dir, l), nil
		},
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCapability replaces the factory for the capability id.
func WithCapability(id string, f CapabilityFactory) Option {
	return func(o *Orchestrator) { o.factories[id] = f }
}

// WithTeamFactory replaces the team agent factory.
func WithTeamFactory(f TeamFactory) Option {
	return func(o *Orchestrator) { o.newTeam = f }
}

// WithRules adds notification rules after the built-in risk alert.
func WithRules(rules ...Rule) Option {
	return func(o *Orchestrator) { o.rules = append(o.rules, rules...) }
}

// WithJournal records every message the orchestrator routes.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// Orchestrator coordinates one set of agents over a shared directory.
type Orchestrator struct {
	dir     *agent.Directory
	logger  *zap.Logger
	newTeam TeamFactory
	rules   []Rule
	journal Journal

	factories map[string]CapabilityFactory

	mu     sync.RWMutex
	agents map[string]agent.Agent
	ready  bool

	// teamsMu serializes team materialization so each team gets one agent.
	teamsMu sync.Mutex
}

// New creates the capability agents and registers them with dir. If any of
// them cannot be created the orchestrator stays uninitialized; the agents
// already registered are removed again by Shutdown.
func New(dir *agent.Directory, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == nil {
		dir = agent.NewDirectory(logger)
	}
	o := &Orchestrator{
		dir:       dir,
		logger:    logger.Named("orchestrator"),
		newTeam:   DefaultTeamFactory,
		rules:     []Rule{RiskAlertRule{}},
		factories: DefaultCapabilities(),
		agents:    make(map[string]agent.Agent),
	}
	for _, opt := range opts {
		opt(o)
	}

	for _, id := range capabilities {
		a, err := o.buildCapability(id)
		if err != nil {
			o.logger.Error("initialize agents", zap.String("agent", id), zap.Error(err))
			return o
		}
		dir.Register(a)
		o.agents[id] = a
	}
	o.ready = true
	o.logger.Info("agents initialized", zap.Int("count", len(o.agents)))
	return o
}

func (o *Orchestrator) buildCapability(id string) (a agent.Agent, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("factory panicked: %v", r)
		}
	}()
	f, ok := o.factories[id]
	if !ok || f == nil {
		return nil, fmt.Errorf("no factory for %s", id)
	}
	a, err = f(o.dir, o.logger)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("factory for %s returned no agent", id)
	}
	if a.ID() != id {
		return nil, fmt.Errorf("factory for %s built agent %s", id, a.ID())
	}
	return a, nil
}

// Ready reports whether OrchestrateProject can run.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ready
}

// Directory returns the directory the orchestrator registers agents with.
func (o *Orchestrator) Directory() *agent.Directory { return o.dir }

// OrchestrateProject analyses data with every agent and returns the combined
// result. Agent failures are replaced by fallbacks; the only error is
// ErrNotInitialized. The orchestrator imposes no timeout of its own; ctx is
// passed to every agent.
func (o *Orchestrator) OrchestrateProject(ctx context.Context, data *project.Data) (res *Result, err error) {
	if !o.Ready() {
		return nil, ErrNotInitialized
	}
	if data == nil {
		data = &project.Data{}
	}
	log := o.logger.With(zap.String("project", data.Project.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("orchestration panicked, using fallback result",
				zap.Any("panic", r), zap.Stack("stack"))
			res, err = FallbackResult(), nil
		}
	}()

	start := time.Now()
	log.Info("starting project orchestration",
		zap.Int("tasks", len(data.Tasks)),
		zap.Int("teams", len(data.Teams)))

	teamIDs := o.materializeTeams(data.Teams)

	var liveTeams int
	outs := fanOut(ctx, []job{
		{name: analysis.DependencyTrackerID, run: o.capability(analysis.DependencyTrackerID, analysis.DependencyInput{
			Tasks:        data.Tasks,
			Dependencies: data.Dependencies,
		})},
		{name: analysis.RiskDetectorID, run: o.capability(analysis.RiskDetectorID, data)},
		{name: analysis.TimelineAdjusterID, run: o.capability(analysis.TimelineAdjusterID, analysis.TimelineInput{
			Project:      data.Project,
			Tasks:        data.Tasks,
			Dependencies: data.Dependencies,
			Resources:    data.Resources,
			Constraints:  []string{},
		})},
		{name: analysis.ResourceAllocatorID, run: o.capability(analysis.ResourceAllocatorID, analysis.ResourceInput{
			Resources:          data.Resources,
			Tasks:              data.Tasks,
			Teams:              data.Teams,
			CurrentAllocations: []analysis.Allocation{},
			SkillRequirements:  data.SkillRequirements,
		})},
		{name: "team-insights", run: func(ctx context.Context) (any, error) {
			insights, live := o.teamInsights(ctx, teamIDs, data)
			liveTeams = live
			return insights, nil
		}},
	}, log)

	res = &Result{}
	failed := 0
	if v, err := resultAs[analysis.DependencyAnalysis](outs[0]); err == nil {
		res.DependencyAnalysis = v
	} else {
		res.DependencyAnalysis = fallbackDependencyAnalysis()
		failed++
	}
	if v, err := resultAs[analysis.RiskAssessment](outs[1]); err == nil {
		res.RiskAssessment = v
	} else {
		res.RiskAssessment = fallbackRiskAssessment()
		failed++
	}
	if v, err := resultAs[analysis.TimelineOptimization](outs[2]); err == nil {
		res.TimelineOptimization = v
	} else {
		res.TimelineOptimization = fallbackTimelineOptimization()
		failed++
	}
	if v, err := resultAs[analysis.ResourceOptimization](outs[3]); err == nil {
		res.ResourceOptimization = v
	} else {
		res.ResourceOptimization = fallbackResourceOptimization()
		failed++
	}
	if v, err := resultAs[[]analysis.TeamInsight](outs[4]); err == nil {
		res.TeamInsights = *v
	} else {
		res.TeamInsights = []analysis.TeamInsight{}
	}

	if failed == len(capabilities) && liveTeams == 0 {
		log.Warn("every analysis failed, using fallback result")
		return FallbackResult(), nil
	}

	o.applyRules(ctx, res, log)
	res.OverallHealth = scoreSafely(res, log)
	res.AgentStates = o.collectStates()

	log.Info("project orchestration finished",
		zap.Int("score", res.OverallHealth.Score),
		zap.String("level", string(res.OverallHealth.Level)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// capability returns a job running the agent registered under id. The agent
// is looked up when the job runs.
func (o *Orchestrator) capability(id string, input any) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		a, ok := o.dir.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("agent %s: %w", id, ErrAgentNotFound)
		}
		return a.Process(ctx, input)
	}
}

func (o *Orchestrator) applyRules(ctx context.Context, res *Result, log *zap.Logger) {
	for _, rule := range o.rules {
		if err := o.applyRule(ctx, rule, res); err != nil {
			log.Warn("notification rule failed",
				zap.String("rule", rule.Name()),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) applyRule(ctx context.Context, rule Rule, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Apply(ctx, o.send, res)
}

// send delivers msg through the directory and journals it.
func (o *Orchestrator) send(ctx context.Context, msg *agent.Message) error {
	err := o.dir.Deliver(ctx, msg)
	if o.journal != nil {
		if jerr := o.journal.Record(ctx, msg); jerr != nil {
			o.logger.Warn("journal message", zap.String("message", msg.ID), zap.Error(jerr))
		}
	}
	return err
}

// collectStates snapshots every registered agent, ordered by id.
func (o *Orchestrator) collectStates() []AgentSnapshot {
	agents := o.dir.List()
	out := make([]AgentSnapshot, 0, len(agents))
	for _, a := range agents {
		out = append(out, snapshot(a))
	}
	return out
}

func snapshot(a agent.Agent) (s AgentSnapshot) {
	s.AgentID = a.ID()
	defer func() {
		if r := recover(); r != nil {
			s.State = agent.State{
				ID:         s.AgentID,
				Status:     agent.StatusError,
				LastUpdate: time.Now(),
				Confidence: 0,
			}
		}
	}()
	s.State = a.State()
	return s
}

// Agent returns the agent id was created as, if this orchestrator owns it.
func (o *Orchestrator) Agent(id string) (agent.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[id]
	return a, ok
}

// Agents returns the agents this orchestrator owns, ordered by id.
func (o *Orchestrator) Agents() []agent.Agent {
	o.mu.RLock()
	out := make([]agent.Agent, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, a)
	}
	o.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Shutdown unregisters every agent this orchestrator created and marks it
// uninitialized. It is safe to call more than once.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.agents {
		o.dir.Remove(id)
	}
	n := len(o.agents)
	o.agents = make(map[string]agent.Agent)
	o.ready = false
	if n > 0 {
		o.logger.Info("agents shut down", zap.Int("count", n))
	}
}

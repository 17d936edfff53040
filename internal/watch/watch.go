// Package watch re-analyses a fixed set of projects on an interval, so
// caches stay warm and escalations go out without anyone asking.
package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BeatFunc analyses one project.
type BeatFunc func(ctx context.Context, projectID string) error

// Watcher fires BeatFunc for every watched project once per interval.
type Watcher struct {
	interval time.Duration
	timeout  time.Duration
	projects []string
	beatFn   BeatFunc
	stop     chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	running  bool
	logger   *zap.Logger
}

// New creates a watcher. timeout bounds each beat; zero leaves it unbounded.
func New(interval, timeout time.Duration, projects []string, beatFn BeatFunc, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := make([]string, len(projects))
	copy(ids, projects)
	return &Watcher{
		interval: interval,
		timeout:  timeout,
		projects: ids,
		beatFn:   beatFn,
		logger:   logger,
	}
}

// SetProjects replaces the watched project ids.
func (w *Watcher) SetProjects(ids []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projects = append([]string(nil), ids...)
}

func (w *Watcher) watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.projects))
	copy(out, w.projects)
	return out
}

// FireNow runs one round immediately and returns how many beats succeeded.
func (w *Watcher) FireNow(ctx context.Context) int {
	fired := 0
	for _, id := range w.watched() {
		if ctx.Err() != nil {
			break
		}
		if err := w.beat(ctx, id); err != nil {
			w.logger.Warn("project re-analysis failed",
				zap.String("project", id),
				zap.Error(err))
			continue
		}
		fired++
		w.logger.Debug("project re-analysed", zap.String("project", id))
	}
	return fired
}

func (w *Watcher) beat(ctx context.Context, id string) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.beatFn(ctx, id)
}

// Start runs rounds in the background until Stop is called or ctx ends.
// Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.interval <= 0 {
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(ctx, w.stop, w.done)
	w.logger.Info("project watcher started",
		zap.Duration("interval", w.interval),
		zap.Int("projects", len(w.projects)))
}

func (w *Watcher) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.FireNow(ctx)
		}
	}
}

// Stop ends the background loop and waits for the current round.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stop, done := w.stop, w.done
	w.mu.Unlock()

	close(stop)
	<-done
	w.logger.Info("project watcher stopped")
}

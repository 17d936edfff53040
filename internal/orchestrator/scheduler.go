package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// job is one independent analysis task of a fan-out.
type job struct {
	name string
	run  func(ctx context.Context) (any, error)
}

// outcome is a finished job: either a value or the reason it failed.
type outcome struct {
	name  string
	value any
	err   error
	took  time.Duration
}

func (o outcome) failed() bool { return o.err != nil }

// fanOut runs every job concurrently and waits for all of them. It never
// fails: errors and panics become failed outcomes, returned in job order.
func fanOut(ctx context.Context, jobs []job, logger *zap.Logger) []outcome {
	outs := make([]outcome, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			outs[i] = execute(ctx, j)
			if outs[i].failed() {
				logger.Warn("analysis failed",
					zap.String("task", j.name),
					zap.Duration("took", outs[i].took),
					zap.Error(outs[i].err))
				return
			}
			logger.Info("analysis completed",
				zap.String("task", j.name),
				zap.Duration("took", outs[i].took))
		}(i, j)
	}

	wg.Wait()
	return outs
}

// execute runs a single job, converting a panic into an error.
func execute(ctx context.Context, j job) (o outcome) {
	start := time.Now()
	o.name = j.name
	defer func() {
		if r := recover(); r != nil {
			o.value, o.err = nil, fmt.Errorf("%s panicked: %v", j.name, r)
		}
		o.took = time.Since(start)
	}()
	o.value, o.err = j.run(ctx)
	return o
}

// resultAs extracts a typed result from o. Agents may return either a
// pointer or a value; anything else counts as a failure.
func resultAs[T any](o outcome) (*T, error) {
	if o.err != nil {
		return nil, o.err
	}
	switch v := o.value.(type) {
	case *T:
		if v != nil {
			return v, nil
		}
	case T:
		return &v, nil
	}
	return nil, fmt.Errorf("%s: unexpected result type %T", o.name, o.value)
}

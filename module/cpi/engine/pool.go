// Package engine runs tasks through a bounded window of goroutines.
package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work submitted to a Pool
type Task[T any] func(ctx context.Context) (T, error)

// Pool admits at most width tasks at a time. Submit blocks while the window
// is full. The first failing task cancels the pool context, after which no
// more tasks are admitted and Submit and Wait return that error.
type Pool[T any] struct {
	name    string
	group   *errgroup.Group
	parent  context.Context
	ctx     context.Context
	logger  zerolog.Logger
	mu      sync.Mutex
	results []T
	count   int
}

func NewPool[T any](ctx context.Context, name string, width int) *Pool[T] {
	if width <= 0 {
		width = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	logger := log.With().
		Str("pool", name).
		Int("concurrency", width).
		Logger()
	if traceID, ok := TraceID(ctx); ok {
		logger = logger.With().Str("trace_id", traceID).Logger()
	}

	return &Pool[T]{
		name:   name,
		group:  g,
		parent: ctx,
		ctx:    gctx,
		logger: logger,
	}
}

// Submit schedules task, waiting for a free slot first. info identifies the
// task in logs.
func (p *Pool[T]) Submit(info string, task Task[T]) error {
	if err := p.ctx.Err(); err != nil {
		return p.abort(err)
	}

	p.count++
	index := p.count
	p.group.Go(func() error {
		// the slot may have been granted after another task failed
		if err := p.ctx.Err(); err != nil {
			return err
		}

		jobLogger := p.logger.With().
			Int("job_index", index).
			Str("job_info", info).
			Logger()
		jobLogger.Debug().Msg("Starting job execution")
		start := time.Now()

		res, err := task(p.ctx)
		if err != nil {
			jobLogger.Debug().
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("Job execution terminated with errors")
			return err
		}

		p.mu.Lock()
		p.results = append(p.results, res)
		p.mu.Unlock()

		jobLogger.Debug().
			Dur("duration", time.Since(start)).
			Msg("Job completed successfully")
		return nil
	})

	if err := p.ctx.Err(); err != nil {
		return p.abort(err)
	}
	return nil
}

// Wait blocks until every admitted task has finished and returns their
// results in completion order, or the first error.
func (p *Pool[T]) Wait() ([]T, error) {
	if err := p.group.Wait(); err != nil {
		p.logger.Debug().Err(err).Int("total_jobs", p.count).Msg("Pool aborted")
		return nil, err
	}
	// the group context is always canceled once Wait returns
	if err := p.parent.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug().Int("total_jobs", p.count).Msg("Pool drained")

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results, nil
}

// abort waits for the tasks still in flight and returns the error that
// stopped the pool, falling back to the context error when the parent
// context was canceled without any task failing.
func (p *Pool[T]) abort(ctxErr error) error {
	if err := p.group.Wait(); err != nil {
		return err
	}
	return ctxErr
}

type traceKey struct{}

// WithTraceID attaches a run trace id that pools add to their log lines
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the trace id stored by WithTraceID
func TraceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceKey{}).(string)
	return id, ok
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zonescript/internal/ast"
	"zonescript/internal/evaluator"
	"zonescript/internal/future"
	"zonescript/internal/messages"
	"zonescript/internal/object"
)

var (
	ErrScriptLoaded    = errors.New("script already loaded")
	ErrScriptNotLoaded = errors.New("script not loaded")
)

// HandlerError reports a failed event dispatch. The script stays loaded.
type HandlerError struct {
	Script string
	Event  string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: on %s: %v", e.Script, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

type job struct {
	run      func() (object.Object, error)
	complete func(object.Object, error)
}

// Script is a loaded program. Every execution against it, top level,
// handlers and REPL input, runs in submission order on its own goroutine.
type Script struct {
	name    string
	source  string
	ev      *evaluator.Evaluator
	catalog *messages.Catalog
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

func newScript(name, source string, ev *evaluator.Evaluator, queueSize int, catalog *messages.Catalog, logger *slog.Logger) *Script {
	s := &Script{
		name:    name,
		source:  source,
		ev:      ev,
		catalog: catalog,
		logger:  logger,
		jobs:    make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Script) Name() string                     { return s.name }
func (s *Script) Source() string                   { return s.source }
func (s *Script) Handlers() []string               { return s.ev.Handlers() }
func (s *Script) HasHandler(event string) bool     { return s.ev.HasHandler(event) }
func (s *Script) Evaluator() *evaluator.Evaluator { return s.ev }

func (s *Script) loop() {
	defer close(s.done)
	for j := range s.jobs {
		j.complete(j.run())
	}
}

// submit queues fn. The returned future completes when fn has run; a
// cancelled ctx only abandons a submission that is still waiting for room
// in the queue.
func (s *Script) submit(ctx context.Context, fn func() (object.Object, error)) *future.Future[object.Object] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return future.FromError[object.Object](fmt.Errorf("%w: %s", ErrScriptNotLoaded, s.name))
	}

	f, complete := future.Pending[object.Object]()
	select {
	case s.jobs <- job{run: fn, complete: complete}:
		return f
	case <-ctx.Done():
		return future.FromError[object.Object](ctx.Err())
	}
}

func (s *Script) run(ctx context.Context, program *ast.Program) (object.Object, error) {
	return s.submit(ctx, func() (object.Object, error) {
		return s.ev.Run(program)
	}).Await(ctx)
}

// dispatch queues one event. Scripts without a handler complete at once.
func (s *Script) dispatch(ctx context.Context, event string, vars map[string]object.Object) *future.Future[object.Object] {
	return s.submit(ctx, func() (object.Object, error) {
		if err := s.ev.TriggerEvent(event, vars); err != nil {
			s.logger.Warn(s.catalog.Sprintf(messages.HandlerFailed, event, s.name, err),
				slog.String("event", event), slog.Any("error", err))
			return nil, &HandlerError{Script: s.name, Event: event, Err: err}
		}
		return object.NULL, nil
	})
}

// stop closes the queue after the pending jobs and waits for them.
func (s *Script) stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	<-s.done
}

// Package flow holds the advice request state machine that backs the form.
//
// The flow owns a single UI state. Every change goes through one transition
// function and is pushed to subscribers after the lock is released.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/advisor"
	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"go.uber.org/zap"
)

// ErrRequestInFlight is returned when Submit is called while a previous
// submission is still loading. The state is left untouched.
var ErrRequestInFlight = errors.New("an advice request is already in progress")

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseError
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText lets the phase travel as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a tagged variant: Message is set only in PhaseError and Advice
// only in PhaseReady.
type State struct {
	Phase   Phase                  `json:"phase"`
	Query   string                 `json:"query,omitempty"`
	Message string                 `json:"error,omitempty"`
	Advice  *models.AdviceResponse `json:"advice,omitempty"`
}

func Idle() State { return State{Phase: PhaseIdle} }

func Loading(query string) State { return State{Phase: PhaseLoading, Query: query} }

func Failed(query, message string) State {
	return State{Phase: PhaseError, Query: query, Message: message}
}

func Ready(query string, advice *models.AdviceResponse) State {
	return State{Phase: PhaseReady, Query: query, Advice: advice}
}

func (s State) IsLoading() bool { return s.Phase == PhaseLoading }
func (s State) IsReady() bool   { return s.Phase == PhaseReady }
func (s State) IsError() bool   { return s.Phase == PhaseError }

type AdviceFlow struct {
	generator advisor.Generator
	log       *zap.Logger

	mu        sync.Mutex
	state     State
	observers map[int]func(State)
	nextID    int
}

func NewAdviceFlow(generator advisor.Generator, log *zap.Logger) *AdviceFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdviceFlow{
		generator: generator,
		log:       log,
		state:     Idle(),
		observers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (f *AdviceFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn to be called after every transition. The returned
// function removes it again.
func (f *AdviceFlow) Subscribe(fn func(State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.observers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.observers, id)
	}
}

// Submit runs one advice request for query.
//
// A blank query is a no-op: the generator is not called, the state does not
// change and Submit returns nil, nil. While a request is loading further
// submissions fail with ErrRequestInFlight. Otherwise the previous result or
// error is cleared, the flow enters Loading and exactly one generator call
// decides between Ready and Error. Failures, including a panicking
// generator, are returned as *advisor.AdviceGenerationError.
func (f *AdviceFlow) Submit(ctx context.Context, query string) (*models.AdviceResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if err := f.begin(query); err != nil {
		return nil, err
	}
	return f.run(ctx, query)
}

// Start is Submit without waiting for the generator. The flow is already in
// Loading when Start returns; the returned channel is closed once the request
// has settled. A blank query returns a nil channel and no error.
func (f *AdviceFlow) Start(ctx context.Context, query string) (<-chan struct{}, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if err := f.begin(query); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.run(ctx, query)
	}()
	return done, nil
}

func (f *AdviceFlow) begin(query string) error {
	ok := f.transition(func(cur State) (State, bool) {
		if cur.IsLoading() {
			return cur, false
		}
		return Loading(query), true
	})
	if !ok {
		f.log.Warn("advice submit ignored, request in flight")
		return ErrRequestInFlight
	}
	f.log.Info("advice request started", zap.Int("query_len", len(query)))
	return nil
}

// run settles a request begun with begin. The flow never stays in Loading
// after run returns, even if the generator panics.
func (f *AdviceFlow) run(ctx context.Context, query string) (advice *models.AdviceResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			f.log.Error("advice generator panicked", zap.Any("panic", p))
			advice, err = nil, f.fail(query, fmt.Errorf("generator panic: %v", p))
		}
	}()

	advice, err = f.generator.GenerateAdvice(ctx, query)
	if err == nil && advice == nil {
		err = errors.New("empty advice response")
	}
	if err != nil {
		f.log.Error("advice request failed", zap.Error(err))
		return nil, f.fail(query, err)
	}

	f.log.Info("advice request completed", zap.Int("use_cases", len(advice.AIUseCases)))
	f.transition(func(State) (State, bool) { return Ready(query, advice), true })
	return advice, nil
}

func (f *AdviceFlow) fail(query string, cause error) *advisor.AdviceGenerationError {
	adviceErr := advisor.NewAdviceError(cause)
	f.transition(func(State) (State, bool) { return Failed(query, adviceErr.Message), true })
	return adviceErr
}

// Reset returns the flow to Idle. It reports false and does nothing while a
// request is loading.
func (f *AdviceFlow) Reset() bool {
	return f.transition(func(cur State) (State, bool) {
		if cur.IsLoading() {
			return cur, false
		}
		return Idle(), true
	})
}

// transition is the single mutation point. next decides the new state under
// the lock; observers run after it is released.
func (f *AdviceFlow) transition(next func(State) (State, bool)) bool {
	f.mu.Lock()
	state, ok := next(f.state)
	if !ok {
		f.mu.Unlock()
		return false
	}
	f.state = state
	observers := make([]func(State), 0, len(f.observers))
	for _, fn := range f.observers {
		observers = append(observers, fn)
	}
	f.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
	return true
}

// Package loading holds the shared loading indicator state and the wrapper
// that keeps it visible for a minimum time.
package loading

import (
	"context"
	"sync"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/constants"
)

// Snapshot is what observers see.
type Snapshot struct {
	Active   bool
	Message  string
	InFlight int
}

// State is a reference counted loading flag plus the current message.
// Active is true iff at least one WithLoading call is in flight.
type State struct {
	mu       sync.Mutex
	inFlight int
	message  string

	subs map[chan Snapshot]struct{}
}

func NewState() *State {
	return &State{subs: make(map[chan Snapshot]struct{})}
}

func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

func (s *State) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *State) snapshot() Snapshot {
	return Snapshot{Active: s.inFlight > 0, Message: s.message, InFlight: s.inFlight}
}

// Subscribe delivers a Snapshot after every change until ctx is done. Slow
// readers miss intermediate snapshots but always see the latest one.
func (s *State) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[chan Snapshot]struct{})
	}
	s.subs[ch] = struct{}{}
	ch <- s.snapshot()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *State) begin(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.message = message
	s.publish()
}

func (s *State) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.publish()
}

// publish must be called with mu held.
func (s *State) publish() {
	snap := s.snapshot()
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Options configures WithLoading. Zero values take the defaults.
type Options struct {
	// Message is shown while the operation runs. Default "Loading...".
	Message string
	// MinDuration is the minimum time the indicator stays up. Default 1s.
	MinDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Message == "" {
		o.Message = constants.DefaultLoadingMessage
	}
	if o.MinDuration <= 0 {
		o.MinDuration = constants.DefaultMinDuration
	}
	return o
}

// WithLoading runs op with the indicator raised, and keeps it raised until at
// least opts.MinDuration has passed since the call started. op's value and
// error are returned unchanged, after the dwell. A panic in op is re-raised
// once the counter has been released.
//
// The dwell ignores ctx; op receives ctx as is.
func WithLoading[T any](ctx context.Context, s *State, opts Options, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	s.begin(opts.Message)
	defer s.end()

	started := time.Now()
	defer func() {
		if remaining := opts.MinDuration - time.Since(started); remaining > 0 {
			time.Sleep(remaining)
		}
	}()

	return op(ctx)
}

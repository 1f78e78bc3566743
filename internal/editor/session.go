package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/michaelbrown/runpad/internal/lang"
)

// ErrBusy is returned by Session.Run while another run is in flight.
var ErrBusy = errors.New("a run is already in progress")

// Session holds one editor's state and drives runs through a Relay.
type Session struct {
	cat   lang.Catalog
	relay Relay
	now   func() time.Time

	mu    sync.Mutex
	state State
}

// NewSession starts an editor on the catalog's default language.
func NewSession(cat lang.Catalog, relay Relay) *Session {
	return &Session{
		cat:   cat,
		relay: relay,
		now:   time.Now,
		state: NewState(cat),
	}
}

// Catalog returns the languages this session offers.
func (s *Session) Catalog() lang.Catalog {
	return s.cat
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) apply(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// SelectLanguage switches language and loads its sample.
func (s *Session) SelectLanguage(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := SelectLanguage(s.state, s.cat, tag)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Session) SetCode(code string) {
	s.apply(func(st State) State { return SetCode(st, code) })
}

func (s *Session) SetInput(input string) {
	s.apply(func(st State) State { return SetInput(st, input) })
}

// Reset restores the sample and clears input, output and runtime.
func (s *Session) Reset() {
	s.apply(func(st State) State { return Reset(st, s.cat) })
}

// Download returns the current code as code.<ext>.
func (s *Session) Download() (string, []byte, error) {
	return Download(s.State(), s.cat)
}

// Run submits the current code. A call made while a run is in flight is
// ignored and returns ErrBusy. A transport failure is shown as
// ConnectionError and also returned. Run always leaves the session idle.
func (s *Session) Run(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Busy {
		st := s.state
		s.mu.Unlock()
		return st, ErrBusy
	}
	s.state = BeginRun(s.state)
	req := s.state.Request()
	start := s.now()
	s.mu.Unlock()

	res, err := s.relay.Run(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.state = FinishRun(s.state) }()

	if err != nil {
		s.state = FailRun(s.state)
		return FinishRun(s.state), err
	}
	s.state = CompleteRun(s.state, res, s.now().Sub(start))
	return FinishRun(s.state), nil
}

// Package editor is the client side of runpad: the editor state, the pure
// transitions applied to it, and the session that drives runs through a
// relay transport.
package editor

import (
	"fmt"
	"math"
	"time"

	"github.com/michaelbrown/runpad/internal/lang"
)

const (
	// NoOutput is shown when the relay answered with neither output nor error.
	NoOutput = "No output."
	// ConnectionError is shown when the relay could not be reached.
	ConnectionError = "❌ Error connecting to server."
)

// State is everything the editor shows. It is a value; transitions return a
// new State.
type State struct {
	Language string
	Code     string
	Input    string
	Output   string
	// Runtime is the last measured run time in seconds, nil when none is shown.
	Runtime *float64
	Busy    bool
}

// Response is the relay's JSON body as the client reads it. Either field may
// be absent.
type Response struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewState returns the initial state for a catalog: its default language and
// that language's sample.
func NewState(cat lang.Catalog) State {
	def := cat.Default()
	return State{
		Language: def.Value,
		Code:     def.DefaultCode,
	}
}

// SelectLanguage switches to tag and loads its sample. Input is kept.
func SelectLanguage(s State, cat lang.Catalog, tag string) (State, error) {
	l, err := cat.Lookup(tag)
	if err != nil {
		return s, err
	}
	s.Language = l.Value
	s.Code = l.DefaultCode
	s.Output = ""
	s.Runtime = nil
	return s, nil
}

// SetCode replaces the editor text.
func SetCode(s State, code string) State {
	s.Code = code
	return s
}

// SetInput replaces the stdin text.
func SetInput(s State, input string) State {
	s.Input = input
	return s
}

// Reset restores the sample for the current language and clears input,
// output and runtime.
func Reset(s State, cat lang.Catalog) State {
	if l, err := cat.Lookup(s.Language); err == nil {
		s.Code = l.DefaultCode
	}
	s.Input = ""
	s.Output = ""
	s.Runtime = nil
	return s
}

// BeginRun clears the previous result and marks the editor busy.
func BeginRun(s State) State {
	s.Output = ""
	s.Runtime = nil
	s.Busy = true
	return s
}

// CompleteRun shows a decoded relay response and the elapsed time.
func CompleteRun(s State, res Response, elapsed time.Duration) State {
	switch {
	case res.Output != "":
		s.Output = res.Output
	case res.Error != "":
		s.Output = res.Error
	default:
		s.Output = NoOutput
	}
	rt := roundSeconds(elapsed)
	s.Runtime = &rt
	return s
}

// FailRun shows the connection error. No runtime is recorded.
func FailRun(s State) State {
	s.Output = ConnectionError
	return s
}

// FinishRun clears the busy flag. It follows every BeginRun.
func FinishRun(s State) State {
	s.Busy = false
	return s
}

// Request returns what a run of s submits.
func (s State) Request() RunRequest {
	return RunRequest{Language: s.Language, Code: s.Code, Input: s.Input}
}

// RuntimeLabel renders the runtime as shown next to the output, or "" when
// there is none.
func (s State) RuntimeLabel() string {
	if s.Runtime == nil {
		return ""
	}
	return fmt.Sprintf("%.2fs", *s.Runtime)
}

func roundSeconds(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Seconds()*100) / 100
}

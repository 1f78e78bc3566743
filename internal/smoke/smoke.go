// Package smoke runs small scenario files through the relay to confirm each
// language still round-trips.
package smoke

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/michaelbrown/runpad/internal/editor"
	"github.com/michaelbrown/runpad/internal/lang"
	"github.com/michaelbrown/runpad/internal/relay"
)

// Scenario is one [[scenario]] entry of a scenario file.
type Scenario struct {
	Name     string `toml:"name"`
	Language string `toml:"language"`
	Code     string `toml:"code"`
	Stdin    string `toml:"stdin"`
	// Expect is compared exactly against the output when set.
	Expect string `toml:"expect"`
	// Contains is a substring the output must include when set.
	Contains string `toml:"contains"`
}

type scenarioFile struct {
	Scenarios []Scenario `toml:"scenario"`
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario Scenario
	Output   string
	Runtime  string
	Passed   bool
	Reason   string
}

// expectedHello is what the built-in samples print.
var expectedHello = map[string]string{
	"python":     "Hello, Python!\n",
	"javascript": "Hello, JavaScript!\n",
	"cpp":        "Hello C++",
	"c":          "Hello C\n",
	"java":       "Hello Java\n",
}

// Load reads a TOML scenario file.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios %s: %w", path, err)
	}

	var f scenarioFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenarios %s: %w", path, err)
	}
	for i, sc := range f.Scenarios {
		if sc.Language == "" {
			return nil, fmt.Errorf("scenario %d: language is required", i)
		}
		if sc.Name == "" {
			f.Scenarios[i].Name = fmt.Sprintf("%s #%d", sc.Language, i+1)
		}
	}
	return f.Scenarios, nil
}

// Defaults builds one scenario per catalog entry from its sample program.
func Defaults(cat lang.Catalog) []Scenario {
	out := make([]Scenario, 0, len(cat))
	for _, l := range cat {
		sc := Scenario{
			Name:     l.Label,
			Language: l.Value,
			Code:     l.DefaultCode,
		}
		if want, ok := expectedHello[l.Value]; ok {
			builtin, _ := lang.Builtin().Lookup(l.Value)
			if builtin.DefaultCode == l.DefaultCode {
				sc.Expect = want
			}
		}
		out = append(out, sc)
	}
	return out
}

// Check runs one scenario through r using a fresh editor session, so the
// verdict is based on exactly what a user would see.
func Check(ctx context.Context, cat lang.Catalog, r editor.Relay, sc Scenario) Result {
	sess := editor.NewSession(cat, r)
	res := Result{Scenario: sc}

	// Scenario languages need not be in the catalog; the relay accepts any tag.
	if err := sess.SelectLanguage(sc.Language); err != nil {
		sess = editor.NewSession(lang.Catalog{{Value: sc.Language, Ext: lang.Extension(sc.Language)}}, r)
	}
	sess.SetCode(sc.Code)
	sess.SetInput(sc.Stdin)

	st, err := sess.Run(ctx)
	res.Output = st.Output
	res.Runtime = st.RuntimeLabel()

	switch {
	case err != nil:
		res.Reason = err.Error()
	case st.Output == relay.FailureMessage:
		res.Reason = "relay reported an execution failure"
	case sc.Expect != "" && st.Output != sc.Expect:
		res.Reason = fmt.Sprintf("output %q, want %q", st.Output, sc.Expect)
	case sc.Contains != "" && !strings.Contains(st.Output, sc.Contains):
		res.Reason = fmt.Sprintf("output %q does not contain %q", st.Output, sc.Contains)
	default:
		res.Passed = true
	}
	return res
}

// Run checks every scenario with at most parallel in flight. Results keep
// the scenario order.
func Run(ctx context.Context, cat lang.Catalog, r editor.Relay, scenarios []Scenario, parallel int) []Result {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]Result, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = Check(gctx, cat, r, sc)
			return nil
		})
	}
	g.Wait()
	return results
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

package slotguard

import "fmt"

// Candidate describes one slot button as observed in the page.
type Candidate struct {
	ID     string
	Styles map[string]string
	Attrs  map[string]string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Verdict is the per-candidate outcome of an inspection.
type Verdict struct {
	ID      string
	Decoy   bool
	Reasons []string
}

// Near-zero render size still registers as a box on some layouts.
const minVisibleSize = 2.0

var reasonChecks = []struct {
	predicate string
	reason    string
}{
	{"hidden_css", "hidden via CSS (display/visibility/opacity)"},
	{"unclickable", "not clickable (disabled, pointer-events, tabindex)"},
	{"aria_hidden", "marked aria-hidden"},
	{"offscreen", "positioned off-screen"},
	{"zero_size", "zero or near-zero size"},
}

// Inspect evaluates the decoy rules over a set of candidates and returns
// a verdict per candidate, in input order. Each call uses a fresh fact
// store so earlier inspections cannot leak facts.
func Inspect(candidates []Candidate) ([]Verdict, error) {
	eng, err := newRuleEngine(Rules())
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		for prop, value := range c.Styles {
			if err := eng.addFact("css_property", c.ID, prop, value); err != nil {
				return nil, err
			}
		}
		for name, value := range c.Attrs {
			if err := eng.addFact("attribute", c.ID, name, value); err != nil {
				return nil, err
			}
		}
		// Numeric screening happens here; the rules only combine outcomes.
		if c.X+c.Width < 0 || c.Y+c.Height < 0 {
			if err := eng.addFact("offscreen", c.ID); err != nil {
				return nil, err
			}
		}
		if c.Width < minVisibleSize || c.Height < minVisibleSize {
			if err := eng.addFact("zero_size", c.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := eng.eval(); err != nil {
		return nil, err
	}

	reasons := make(map[string][]string)
	for _, check := range reasonChecks {
		ids, err := eng.query(check.predicate)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", check.predicate, err)
		}
		for _, id := range ids {
			reasons[id] = append(reasons[id], check.reason)
		}
	}

	decoys := make(map[string]bool)
	ids, err := eng.query("decoy_slot")
	if err != nil {
		return nil, fmt.Errorf("query decoy_slot: %w", err)
	}
	for _, id := range ids {
		decoys[id] = true
	}

	verdicts := make([]Verdict, 0, len(candidates))
	for _, c := range candidates {
		verdicts = append(verdicts, Verdict{
			ID:      c.ID,
			Decoy:   decoys[c.ID],
			Reasons: reasons[c.ID],
		})
	}
	return verdicts, nil
}

// Filter returns the candidates that pass inspection.
func Filter(candidates []Candidate) ([]Candidate, []Verdict, error) {
	verdicts, err := Inspect(candidates)
	if err != nil {
		return nil, nil, err
	}

	var pass []Candidate
	for i, v := range verdicts {
		if !v.Decoy {
			pass = append(pass, candidates[i])
		}
	}
	return pass, verdicts, nil
}

// Rules returns the Mangle program deriving decoy_slot from the facts
// emitted per candidate.
func Rules() string {
	return `
Decl css_property(E, P, V).
Decl attribute(E, N, V).
Decl offscreen(E).
Decl zero_size(E).

Decl hidden_css(E).
hidden_css(E) :- css_property(E, "display", "none").
hidden_css(E) :- css_property(E, "visibility", "hidden").
hidden_css(E) :- css_property(E, "opacity", "0").

Decl unclickable(E).
unclickable(E) :- css_property(E, "pointerEvents", "none").
unclickable(E) :- attribute(E, "disabled", _).
unclickable(E) :- attribute(E, "tabindex", "-1").

Decl aria_hidden(E).
aria_hidden(E) :- attribute(E, "aria-hidden", "true").

Decl decoy_slot(E).
decoy_slot(E) :- hidden_css(E).
decoy_slot(E) :- unclickable(E).
decoy_slot(E) :- aria_hidden(E).
decoy_slot(E) :- offscreen(E).
decoy_slot(E) :- zero_size(E).
`
}

// Package slotguard vets candidate slot buttons before the bot clicks
// them. Reservation pages keep stale or trap buttons in the DOM with the
// same classes as live ones; clicking those wastes the booking window.
// Detection rules are expressed in Mangle and evaluated over facts
// extracted from each button's computed style, geometry, and attributes.
package slotguard

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// ruleEngine is a thin wrapper over the Mangle evaluation pipeline:
// parse once, add base facts, evaluate to fixed point, query derived
// predicates.
type ruleEngine struct {
	store       factstore.FactStore
	programInfo *analysis.ProgramInfo
}

func newRuleEngine(source string) (*ruleEngine, error) {
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze rules: %w", err)
	}

	return &ruleEngine{
		store:       factstore.NewSimpleInMemoryStore(),
		programInfo: programInfo,
	}, nil
}

// addFact records a base fact without re-evaluating.
func (e *ruleEngine) addFact(predicate string, args ...any) error {
	terms := make([]ast.BaseTerm, len(args))
	for i, arg := range args {
		term, err := toTerm(arg)
		if err != nil {
			return fmt.Errorf("%s arg %d: %w", predicate, i, err)
		}
		terms[i] = term
	}
	e.store.Add(ast.NewAtom(predicate, terms...))
	return nil
}

// eval runs the program to fixed point over the current facts.
func (e *ruleEngine) eval() error {
	if _, err := engine.EvalProgramWithStats(e.programInfo, e.store); err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	return nil
}

// query returns the first argument of every fact for a unary predicate.
func (e *ruleEngine) query(predicate string) ([]string, error) {
	pred := ast.PredicateSym{Symbol: predicate, Arity: 1}
	q := ast.NewQuery(pred)

	var results []string
	err := e.store.GetFacts(q, func(atom ast.Atom) error {
		if len(atom.Args) == 1 {
			results = append(results, toValue(atom.Args[0]))
		}
		return nil
	})
	return results, err
}

func toTerm(v any) (ast.BaseTerm, error) {
	switch val := v.(type) {
	case string:
		return ast.String(val), nil
	case int:
		return ast.Number(int64(val)), nil
	case int64:
		return ast.Number(val), nil
	case float64:
		return ast.Float64(val), nil
	case bool:
		if val {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", v)
	}
}

func toValue(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		switch c.Type {
		case ast.StringType, ast.NameType:
			return c.Symbol
		default:
			return c.String()
		}
	}
	return fmt.Sprintf("%v", term)
}

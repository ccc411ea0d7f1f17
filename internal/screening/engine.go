// Package screening provides the CEL-Go based red-flag screening engine.
package screening

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opengov-pk/shafaf/internal/domain"
)

// Rule is one configurable red-flag expression over the feature vector.
// Expressions must evaluate to bool; a true result attaches the flag to
// the assessment without changing its score or label.
type Rule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Detail     string `json:"detail"`
	Enabled    bool   `json:"enabled"`
}

// Engine evaluates compiled red-flag rules against a feature vector.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	features []string
	compiled []*compiledRule
}

type compiledRule struct {
	rule    Rule
	program cel.Program
}

// NewEngine creates a screening engine whose expressions may reference the
// given feature names as double variables. All enabled rules are compiled
// up front; a compile failure is returned so the caller can treat it as
// fatal at startup.
func NewEngine(features []string, rules []Rule) (*Engine, error) {
	vars := make([]cel.EnvOption, 0, len(features))
	for _, name := range features {
		vars = append(vars, cel.Variable(name, cel.DoubleType))
	}

	env, err := cel.NewEnv(vars...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		env:      env,
		features: features,
	}

	if err := e.Reload(rules); err != nil {
		return nil, err
	}

	return e, nil
}

// Reload replaces all loaded rules with freshly compiled ones.
// Rule order is preserved; disabled rules are skipped.
func (e *Engine) Reload(rules []Rule) error {
	compiled := make([]*compiledRule, 0, len(rules))

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		program, err := e.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, &compiledRule{rule: rule, program: program})
	}

	e.mu.Lock()
	e.compiled = compiled
	e.mu.Unlock()

	return nil
}

// Screen evaluates every loaded rule against the feature vector and
// returns the flags that triggered, in rule order. Evaluation errors are
// logged and the rule is skipped; screening never fails a request.
func (e *Engine) Screen(features map[string]float64) []domain.ScreeningFlag {
	e.mu.RLock()
	rules := e.compiled
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	// Every declared variable must be present in the activation.
	activation := make(map[string]any, len(e.features))
	for _, name := range e.features {
		activation[name] = features[name]
	}

	var flags []domain.ScreeningFlag
	for _, r := range rules {
		out, _, err := r.program.Eval(activation)
		if err != nil {
			slog.Warn("screening rule evaluation failed",
				"rule_id", r.rule.ID,
				"error", err,
			)
			continue
		}

		if triggered, ok := out.(types.Bool); ok && bool(triggered) {
			flags = append(flags, domain.ScreeningFlag{
				ID:     r.rule.ID,
				Name:   r.rule.Name,
				Detail: r.rule.Detail,
			})
		}
	}

	return flags
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// LoadedRules returns the currently loaded rule configurations in order.
func (e *Engine) LoadedRules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]Rule, 0, len(e.compiled))
	for _, c := range e.compiled {
		rules = append(rules, c.rule)
	}
	return rules
}

func (e *Engine) compile(rule Rule) (cel.Program, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return program, nil
}

// LoadFile reads a JSON array of rules from disk, for deployments that
// override the builtin set.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screening rules: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse screening rules: %w", err)
	}

	return rules, nil
}

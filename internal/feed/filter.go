package feed

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"go.uber.org/zap"
)

// Filter decides whether a resolved object may be served. It must be pure;
// a panicking filter counts as "not eligible".
type Filter[T any] func(T) bool

// All combines filters with logical AND. Nil filters are skipped.
func All[T any](filters ...Filter[T]) Filter[T] {
	active := make([]Filter[T], 0, len(filters))
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(v T) bool {
		for _, f := range active {
			if !f(v) {
				return false
			}
		}
		return true
	}
}

// RuleFilter evaluates a compiled expr boolean rule against an environment built
// from each object.
type RuleFilter[T any] struct {
	name    string
	rule    string
	program *vm.Program
	env     func(T) map[string]any
}

// NewRuleFilter compiles rule once. env maps an object to the variables the rule can see.
func NewRuleFilter[T any](name, rule string, env func(T) map[string]any) (*RuleFilter[T], error) {
	program, err := expr.Compile(rule, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile rule for %s: %w", name, err)
	}
	return &RuleFilter[T]{name: name, rule: rule, program: program, env: env}, nil
}

// Eligible runs the rule. Evaluation errors and non-boolean results reject the object.
func (r *RuleFilter[T]) Eligible(v T) bool {
	out, err := expr.Run(r.program, r.env(v))
	if err != nil {
		logger.Log.Debug("Feed rule evaluation failed",
			logger.WithFeed(r.name),
			zap.String("rule", r.rule),
			zap.Error(err),
		)
		return false
	}
	ok, isBool := out.(bool)
	return isBool && ok
}

// Filter returns the rule as a Filter, or nil for a nil receiver.
func (r *RuleFilter[T]) Filter() Filter[T] {
	if r == nil {
		return nil
	}
	return r.Eligible
}

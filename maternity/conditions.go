package maternity

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// =============================================================================
// CONDITION EVALUATION - Gates for conditional compensation
// =============================================================================

// ConditionInput is what a compensation condition is evaluated against.
type ConditionInput struct {
	Facts     CaseFacts
	TotalDays int
}

// ConditionEvaluator decides administrative compensation conditions. The
// engine has no built-in meaning for them; callers supply one.
type ConditionEvaluator interface {
	Evaluate(cond Condition, in ConditionInput) (bool, error)
}

// Predicate is a Go implementation of one condition.
type Predicate func(in ConditionInput) bool

// PredicateSet maps condition IDs to predicates.
type PredicateSet map[string]Predicate

func (ps PredicateSet) Evaluate(cond Condition, in ConditionInput) (bool, error) {
	p, ok := ps[cond.ID]
	if !ok {
		return false, fmt.Errorf("no predicate registered for condition %q", cond.ID)
	}
	return p(in), nil
}

// CELConditions evaluates Condition.Expression as a CEL program over the
// case. Compiled programs are cached by expression.
//
// Variables: region, classification (string); infant_count,
// gestation_days, child_sequence, mother_age, total_days (int); ectopic,
// has_current_salary (bool); average_salary, current_salary (double).
type CELConditions struct {
	env      *cel.Env
	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

func NewCELConditions() (*CELConditions, error) {
	env, err := cel.NewEnv(
		cel.Variable("region", cel.StringType),
		cel.Variable("classification", cel.StringType),
		cel.Variable("infant_count", cel.IntType),
		cel.Variable("gestation_days", cel.IntType),
		cel.Variable("ectopic", cel.BoolType),
		cel.Variable("child_sequence", cel.IntType),
		cel.Variable("mother_age", cel.IntType),
		cel.Variable("total_days", cel.IntType),
		cel.Variable("average_salary", cel.DoubleType),
		cel.Variable("current_salary", cel.DoubleType),
		cel.Variable("has_current_salary", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELConditions{env: env, prgCache: make(map[string]cel.Program)}, nil
}

// Check compiles an expression without evaluating it.
func (c *CELConditions) Check(expr string) error {
	_, err := c.program(expr)
	return err
}

func (c *CELConditions) Evaluate(cond Condition, in ConditionInput) (bool, error) {
	if cond.Expression == "" {
		return false, fmt.Errorf("condition %q has no expression", cond.ID)
	}
	prg, err := c.program(cond.Expression)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", cond.ID, err)
	}
	out, _, err := prg.Eval(celActivation(in))
	if err != nil {
		return false, fmt.Errorf("condition %q: eval: %w", cond.ID, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q: result not bool", cond.ID)
	}
	return val, nil
}

func (c *CELConditions) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.prgCache[expr]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, hit = c.prgCache[expr]; hit {
		return prg, nil
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("compile: expression yields %s, want bool", ast.OutputType())
	}
	prg, err := c.env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	c.prgCache[expr] = prg
	return prg, nil
}

func celActivation(in ConditionInput) map[string]any {
	f := in.Facts
	vars := map[string]any{
		"region":             string(f.Region),
		"classification":     "",
		"infant_count":       int64(1),
		"gestation_days":     int64(0),
		"ectopic":            false,
		"child_sequence":     int64(f.ChildSequence),
		"mother_age":         int64(f.MotherAge),
		"total_days":         int64(in.TotalDays),
		"average_salary":     0.0,
		"current_salary":     0.0,
		"has_current_salary": f.CurrentSalary != nil,
	}
	if f.Event != nil {
		vars["classification"] = string(f.Event.Classification())
	}
	switch ev := f.Event.(type) {
	case MultipleBirth:
		vars["infant_count"] = int64(ev.InfantCount)
	case Abortion:
		vars["infant_count"] = int64(0)
		vars["gestation_days"] = int64(ev.GestationDays)
		vars["ectopic"] = ev.Ectopic
	}
	if f.AverageSalary != nil {
		vars["average_salary"] = f.AverageSalary.InexactFloat64()
	}
	if f.CurrentSalary != nil {
		vars["current_salary"] = f.CurrentSalary.InexactFloat64()
	}
	return vars
}

// Conditions combines explicit predicates with CEL expressions: a
// registered predicate wins, otherwise the condition's expression is used.
type Conditions struct {
	Predicates PredicateSet
	CEL        *CELConditions
}

func (c Conditions) Evaluate(cond Condition, in ConditionInput) (bool, error) {
	if _, ok := c.Predicates[cond.ID]; ok {
		return c.Predicates.Evaluate(cond, in)
	}
	if c.CEL != nil && cond.Expression != "" {
		return c.CEL.Evaluate(cond, in)
	}
	return false, fmt.Errorf("condition %q cannot be evaluated: no predicate and no expression", cond.ID)
}

var (
	_ ConditionEvaluator = PredicateSet(nil)
	_ ConditionEvaluator = (*CELConditions)(nil)
	_ ConditionEvaluator = Conditions{}
)

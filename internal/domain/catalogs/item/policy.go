package item

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultRestockRule flags items that dropped to their restock level.
const DefaultRestockRule = "available <= restock_level"

// RestockPolicy decides whether an item needs restocking.
// The rule is a CEL boolean expression over available, restock_level, category and name.
type RestockPolicy struct {
	rule string
	prg  cel.Program
}

// NewRestockPolicy compiles rule. An empty rule selects DefaultRestockRule.
func NewRestockPolicy(rule string) (*RestockPolicy, error) {
	if rule == "" {
		rule = DefaultRestockRule
	}

	env, err := cel.NewEnv(
		cel.Variable("available", cel.IntType),
		cel.Variable("restock_level", cel.IntType),
		cel.Variable("category", cel.StringType),
		cel.Variable("name", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile restock rule %q: %w", rule, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("restock rule %q must evaluate to bool, got %s", rule, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program restock rule: %w", err)
	}

	return &RestockPolicy{rule: rule, prg: prg}, nil
}

// Rule returns the source expression.
func (p *RestockPolicy) Rule() string {
	return p.rule
}

// NeedsRestock evaluates the rule for a single item.
func (p *RestockPolicy) NeedsRestock(it *WithAvailability) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"available":     it.Available,
		"restock_level": it.RestockLevel,
		"category":      it.Category,
		"name":          it.Name,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate restock rule for item %d: %w", it.ItemID, err)
	}

	flag, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("restock rule returned %T", out.Value())
	}
	return flag, nil
}

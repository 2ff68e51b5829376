package retention

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"mercator-hq/custodian/pkg/records"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

func conditionEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return celEnv, celEnvErr
}

// Condition is a compiled CEL boolean expression evaluated against a record.
//
// The record is exposed as the map variable "record" with keys entity_type,
// id, name, status, classification, category, regulatory_frameworks,
// department, owner, policy_id, acknowledged_by, is_archived, created_at
// and, when set, modified_at, published_at, archived_at and
// acknowledged_at.
type Condition struct {
	Expr    string
	program cel.Program
}

// CompileCondition parses and type-checks expr. The expression must
// produce a bool.
func CompileCondition(expr string) (*Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}

	env, err := conditionEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.New("condition must evaluate to a bool")
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &Condition{Expr: expr, program: program}, nil
}

// Eval evaluates the condition against r.
func (c *Condition) Eval(r *records.Record) (bool, error) {
	out, _, err := c.program.Eval(map[string]any{"record": recordVars(r)})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("condition did not produce a bool")
	}
	return v, nil
}

func recordVars(r *records.Record) map[string]any {
	frameworks := r.RegulatoryFrameworks
	if frameworks == nil {
		frameworks = []string{}
	}

	vars := map[string]any{
		"entity_type":           string(r.EntityType),
		"id":                    r.ID,
		"name":                  r.Name,
		"status":                r.Status,
		"classification":        r.Classification,
		"category":              r.Category,
		"regulatory_frameworks": frameworks,
		"department":            r.Department,
		"owner":                 r.Owner,
		"policy_id":             r.PolicyID,
		"acknowledged_by":       r.AcknowledgedBy,
		"is_archived":           r.IsArchived,
		"created_at":            r.CreatedAt,
	}
	if r.ModifiedAt != nil {
		vars["modified_at"] = *r.ModifiedAt
	}
	if r.PublishedAt != nil {
		vars["published_at"] = *r.PublishedAt
	}
	if r.ArchivedAt != nil {
		vars["archived_at"] = *r.ArchivedAt
	}
	if r.AcknowledgedAt != nil {
		vars["acknowledged_at"] = *r.AcknowledgedAt
	}
	return vars
}

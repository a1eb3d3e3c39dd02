package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// Condition compares one payload field with a literal value. Conditions of a rule are AND-combined.
type Condition struct {
	Field    string // dotted path into the event payload, e.g. "version.fileSize"
	Operator types.Operator
	Value    string
}

// Validate checks that the condition can be evaluated
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return goerr.Wrap(ErrInvalidRule, "condition field is empty")
	}
	if !c.Operator.IsValid() {
		return goerr.Wrap(ErrInvalidRule, "unknown condition operator", goerr.V("operator", c.Operator))
	}
	if c.Operator == types.OperatorGreaterThan || c.Operator == types.OperatorLessThan {
		if _, ok := toNumber(c.Value); !ok {
			return goerr.Wrap(ErrInvalidRule, "numeric operator needs a numeric value",
				goerr.V("field", c.Field), goerr.V("value", c.Value))
		}
	}
	return nil
}

// Match evaluates the condition against payload. A field that is absent makes
// every operator evaluate to false.
func (c Condition) Match(payload map[string]any) bool {
	raw, ok := lookupField(payload, c.Field)
	if !ok {
		return false
	}

	actual := normalizeValue(raw)
	expected := normalizeValue(c.Value)

	switch c.Operator {
	case types.OperatorEquals:
		return valuesEqual(actual, expected)
	case types.OperatorNotEquals:
		return !valuesEqual(actual, expected)
	case types.OperatorGreaterThan:
		a, aok := toNumber(actual)
		e, eok := toNumber(expected)
		return aok && eok && a > e
	case types.OperatorLessThan:
		a, aok := toNumber(actual)
		e, eok := toNumber(expected)
		return aok && eok && a < e
	case types.OperatorContains:
		return strings.Contains(actual, expected)
	default:
		return false
	}
}

func lookupField(payload map[string]any, path string) (any, bool) {
	var cur any = payload
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func normalizeValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		s = strconv.FormatBool(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		s = fmt.Sprint(x)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func valuesEqual(a, b string) bool {
	if a == b {
		return true
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	return aok && bok && an == bn
}

func toNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

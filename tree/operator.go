package tree

import (
	"math"

	"github.com/pkg/errors"
)

// Operator is the comparison a Choice node applies to a feature value
type Operator uint8

const (
	// LessOrEqual is <=
	LessOrEqual Operator = iota
	// GreaterOrEqual is >=
	GreaterOrEqual
	// Less is <
	Less
	// Greater is >
	Greater
	// Equal is = within EqualTolerance
	Equal
)

// EqualTolerance is the absolute difference under which Equal holds
const EqualTolerance = 1e-4

// operators in the order they are looked for on a line, the
// two-character ones first so <= is never taken for <.
var operators = []Operator{LessOrEqual, GreaterOrEqual, Less, Greater, Equal}

var operatorTokens = [...]string{
	LessOrEqual:    "<=",
	GreaterOrEqual: ">=",
	Less:           "<",
	Greater:        ">",
	Equal:          "=",
}

func (o Operator) String() string {
	if int(o) < len(operatorTokens) {
		return operatorTokens[o]
	}
	return "?"
}

/*
ParseOperator takes an operator token and returns the Operator
it stands for or an error if it is not one of <, >, <=, >= or =.
*/
func ParseOperator(token string) (Operator, error) {
	for _, o := range operators {
		if operatorTokens[o] == token {
			return o, nil
		}
	}
	return 0, errors.Errorf("invalid operator %s", token)
}

/*
Apply compares value against threshold. Any comparison involving
NaN is false.
*/
func (o Operator) Apply(value, threshold float64) bool {
	switch o {
	case LessOrEqual:
		return value <= threshold
	case GreaterOrEqual:
		return value >= threshold
	case Less:
		return value < threshold
	case Greater:
		return value > threshold
	case Equal:
		return value == threshold || math.Abs(value-threshold) <= EqualTolerance
	}
	return false
}

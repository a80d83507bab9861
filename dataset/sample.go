/*
Package dataset reads the samples to predict values for from CSV and
YAML documents.
*/
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/feature"
)

// UndefinedValue is the text of a value that is not known
const UndefinedValue = "?"

/*
parseValue takes the text of a feature value and returns it as a
float64: numbers as they are, true and false as 1 and 0, and
undefined values as NaN.
*/
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == UndefinedValue {
		return math.NaN(), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	switch strings.ToLower(s) {
	case "true":
		return feature.BoolValue(true), nil
	case "false":
		return feature.BoolValue(false), nil
	}
	return 0, errors.Errorf("invalid value %q", s)
}

/*
Value takes a feature value decoded from a YAML or JSON document and
returns it as a float64 the way values are parsed from CSV rows.
*/
func Value(v interface{}) (float64, error) {
	switch v := v.(type) {
	case nil:
		return math.NaN(), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		return feature.BoolValue(v), nil
	case string:
		return parseValue(v)
	}
	return 0, errors.Errorf("invalid value %v of type %T", v, v)
}

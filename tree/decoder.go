package tree

import (
	"strconv"
	"strings"
)

/*
Decoder turns the class text of a leaf line into a prediction value.
Decoding errors make the parse fail.
*/
type Decoder[T any] func(string) (T, error)

// Bool decodes true/false class values regardless of their case
func Bool(s string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
}

// Int decodes integer class values
func Int(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// Float decodes floating point class values
func Float(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// String keeps class values as they are exported
func String(s string) (string, error) {
	return s, nil
}

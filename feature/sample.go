package feature

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

/*
Sample represents an item to predict a value for.

Its HasFeature method tells whether the sample declares the
named feature at all. Its ValueFor method returns the value for
the named feature, NaN when the sample has none.
*/
type Sample interface {
	HasFeature(name string) bool
	ValueFor(name string) float64
}

/*
Vector is a dense Sample whose values are laid out following
a Features index. Vectors are created with Features.NewSample.
*/
type Vector struct {
	features *Features
	values   []float64
}

func newVector(f *Features, n int) *Vector {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Vector{features: f, values: values}
}

// Features returns the index the vector was created from
func (v *Vector) Features() *Features {
	return v.features
}

/*
Set takes a feature name and a value and sets it on the vector.
It returns ErrUnknownFeature if the name is not on the vector's index.
*/
func (v *Vector) Set(name string, value float64) error {
	i, err := v.features.Index(name)
	if err != nil {
		return err
	}
	return v.SetIndex(i, value)
}

// SetBool sets the named feature to 1.0 for true and 0.0 for false
func (v *Vector) SetBool(name string, value bool) error {
	return v.Set(name, BoolValue(value))
}

// SetIndex sets the value for the feature at position i
func (v *Vector) SetIndex(i int, value float64) error {
	if i < 0 || i >= len(v.values) {
		return errors.Errorf("index %d out of range for %d features", i, len(v.values))
	}
	v.values[i] = value
	return nil
}

/*
Get returns the value of the named feature, NaN if it was
never set, or ErrUnknownFeature if the name is not indexed.
*/
func (v *Vector) Get(name string) (float64, error) {
	i, err := v.features.Index(name)
	if err != nil {
		return math.NaN(), err
	}
	return v.values[i], nil
}

// HasFeature returns whether the name is part of the vector's index
func (v *Vector) HasFeature(name string) bool {
	return v.features.Has(name)
}

// ValueFor returns the value of the named feature or NaN
func (v *Vector) ValueFor(name string) float64 {
	val, err := v.Get(name)
	if err != nil {
		return math.NaN()
	}
	return val
}

func (v *Vector) String() string {
	names := v.features.Names()
	parts := make([]string, 0, len(names))
	for i, n := range names {
		if i >= len(v.values) {
			break
		}
		parts = append(parts, fmt.Sprintf("%s:%v", n, v.values[i]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

/*
Map is a Sample backed by a map of feature names to values,
handy for one-off predictions.
*/
type Map map[string]float64

// HasFeature returns whether the map has an entry for the name
func (m Map) HasFeature(name string) bool {
	_, ok := m[name]
	return ok
}

// ValueFor returns the value for the name or NaN
func (m Map) ValueFor(name string) float64 {
	v, ok := m[name]
	if !ok {
		return math.NaN()
	}
	return v
}

// BoolValue encodes a boolean feature value as 1.0 or 0.0
func BoolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

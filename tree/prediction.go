package tree

import (
	"fmt"
)

// PredictionError represents an error related with predictions
type PredictionError string

/*
ErrProbabilityUnavailable is the error returned when probabilities
are requested from a leaf of a tree exported without weights.
*/
const ErrProbabilityUnavailable = PredictionError("model was not exported with weights, can't calculate probability")

/*
ErrEmptyWeights is returned for a leaf whose weights add up to zero,
for which no probability can be computed.
*/
const ErrEmptyWeights = PredictionError("leaf weights add up to zero, can't calculate probability")

func (pe PredictionError) Error() string {
	return string(pe)
}

/*
MissingFeatureError is returned by predictions on samples that do not
define a feature the tree asks about. It is detected before the tree
is walked.
*/
type MissingFeatureError struct {
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("expected feature named '%s' but none provided", e.Feature)
}

/*
NoBranchMatchedError is returned when neither choice of a decision node
holds for the value of a sample. It signals a malformed tree or a corrupt
sample (a NaN value, typically) and is never resolved by picking a branch.
*/
type NoBranchMatchedError struct {
	Feature string
	Value   float64
}

func (e *NoBranchMatchedError) Error() string {
	return fmt.Sprintf("no branches evaluated to true for feature '%s' with value %v", e.Feature, e.Value)
}

/*
Prediction is the outcome of walking a tree for a sample: the decoded
value of the reached leaf and its weights, if any.
*/
type Prediction[T any] struct {
	value   T
	weights []float64
}

/*
NewPrediction takes a value and a slice of per-class weights (nil if
unknown) and returns a prediction representing them.
*/
func NewPrediction[T any](value T, weights []float64) *Prediction[T] {
	return &Prediction[T]{value: value, weights: weights}
}

// Value returns the predicted value
func (p *Prediction[T]) Value() T {
	return p.value
}

// Weights returns the per-class weights of the prediction or nil
func (p *Prediction[T]) Weights() []float64 {
	if p.weights == nil {
		return nil
	}
	return append([]float64(nil), p.weights...)
}

/*
Probabilities returns the probability of each class, that is each
weight divided by the sum of all of them. It returns
ErrProbabilityUnavailable if the prediction has no weights.
*/
func (p *Prediction[T]) Probabilities() ([]float64, error) {
	if len(p.weights) == 0 {
		return nil, ErrProbabilityUnavailable
	}
	var total float64
	for _, w := range p.weights {
		total += w
	}
	if total == 0 {
		return nil, ErrEmptyWeights
	}
	result := make([]float64, len(p.weights))
	for i, w := range p.weights {
		result[i] = w / total
	}
	return result, nil
}

func (p *Prediction[T]) String() string {
	if p.weights == nil {
		return fmt.Sprintf("%v", p.value)
	}
	return fmt.Sprintf("%v %v", p.value, p.weights)
}

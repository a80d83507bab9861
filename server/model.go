package server

import (
	"context"

	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/tree"
)

/*
Model is a model served over HTTP. Predictions are returned as
interface{} values so that models of any class type can be served
side by side.
*/
type Model interface {
	Kind() string
	FeatureNames() []string
	Predict(context.Context, []feature.Sample) ([]interface{}, error)
	PredictProbabilities(context.Context, []feature.Sample) ([][]float64, error)
}

type treeModel[T any] struct {
	t *tree.Tree[T]
}

// TreeModel returns a Model serving the given tree
func TreeModel[T any](t *tree.Tree[T]) Model {
	return &treeModel[T]{t}
}

func (m *treeModel[T]) Kind() string {
	return "tree"
}

func (m *treeModel[T]) FeatureNames() []string {
	return m.t.FeatureNames()
}

func (m *treeModel[T]) Predict(_ context.Context, samples []feature.Sample) ([]interface{}, error) {
	values, err := m.t.PredictAll(samples)
	if err != nil {
		return nil, err
	}
	return toInterfaces(values), nil
}

func (m *treeModel[T]) PredictProbabilities(_ context.Context, samples []feature.Sample) ([][]float64, error) {
	return m.t.PredictProbabilitiesAll(samples)
}

type forestModel[T comparable] struct {
	f *forest.Forest[T]
}

// ForestModel returns a Model serving the given forest
func ForestModel[T comparable](f *forest.Forest[T]) Model {
	return &forestModel[T]{f}
}

func (m *forestModel[T]) Kind() string {
	return "forest"
}

func (m *forestModel[T]) FeatureNames() []string {
	return m.f.FeatureNames()
}

func (m *forestModel[T]) Predict(ctx context.Context, samples []feature.Sample) ([]interface{}, error) {
	values, err := m.f.PredictAll(ctx, samples)
	if err != nil {
		return nil, err
	}
	return toInterfaces(values), nil
}

func (m *forestModel[T]) PredictProbabilities(ctx context.Context, samples []feature.Sample) ([][]float64, error) {
	return m.f.PredictProbabilitiesAll(ctx, samples)
}

func toInterfaces[T any](values []T) []interface{} {
	result := make([]interface{}, len(values))
	for i, v := range values {
		result[i] = v
	}
	return result
}

package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pbanos/grove/feature"
)

/*
Tree represents a decision tree rebuilt from an export. Its nodes
live in an arena indexed by NodeID; the root is a Decision node or,
for models without splits, a single Leaf.

A Tree is never modified once built, so it is safe for concurrent use.
*/
type Tree[T any] struct {
	nodes    []Node[T]
	root     NodeID
	features []string
	leaves   int
}

// Root returns the ID of the root node
func (t *Tree[T]) Root() NodeID {
	return t.root
}

// Len returns the number of nodes in the tree
func (t *Tree[T]) Len() int {
	return len(t.nodes)
}

// Leaves returns the number of leaf nodes in the tree
func (t *Tree[T]) Leaves() int {
	return t.leaves
}

/*
Node returns a copy of the node with the given ID. It panics if
the ID does not belong to the tree.
*/
func (t *Tree[T]) Node(id NodeID) Node[T] {
	return t.nodes[id].clone()
}

// FeatureNames returns the sorted names of the features the tree asks about
func (t *Tree[T]) FeatureNames() []string {
	return append([]string(nil), t.features...)
}

/*
Validate returns a *MissingFeatureError for the first feature, in
name order, the tree asks about and the sample does not define.
*/
func (t *Tree[T]) Validate(s feature.Sample) error {
	for _, f := range t.features {
		if !s.HasFeature(f) {
			return &MissingFeatureError{Feature: f}
		}
	}
	return nil
}

/*
Classify takes a sample and returns the prediction of the leaf the
sample reaches. Samples missing any feature of the tree are rejected
with a *MissingFeatureError before walking it, and a decision whose
choices do not hold for the sample value fails with a
*NoBranchMatchedError.
*/
func (t *Tree[T]) Classify(s feature.Sample) (*Prediction[T], error) {
	if err := t.Validate(s); err != nil {
		return nil, err
	}
	id, err := t.leafFor(s)
	if err != nil {
		return nil, err
	}
	n := &t.nodes[id]
	return NewPrediction(n.Value, n.Weights), nil
}

// Predict returns the predicted value for the sample
func (t *Tree[T]) Predict(s feature.Sample) (T, error) {
	p, err := t.Classify(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.Value(), nil
}

/*
PredictProbabilities returns the class probabilities for the sample,
computed from the weights of the leaf it reaches.
*/
func (t *Tree[T]) PredictProbabilities(s feature.Sample) ([]float64, error) {
	p, err := t.Classify(s)
	if err != nil {
		return nil, err
	}
	return p.Probabilities()
}

/*
PredictAll returns the predicted value for each sample at its
position. The first failing sample aborts the whole batch.
*/
func (t *Tree[T]) PredictAll(samples []feature.Sample) ([]T, error) {
	result := make([]T, len(samples))
	for i, s := range samples {
		v, err := t.Predict(s)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// PredictProbabilitiesAll is the batch version of PredictProbabilities
func (t *Tree[T]) PredictProbabilitiesAll(samples []feature.Sample) ([][]float64, error) {
	result := make([][]float64, len(samples))
	for i, s := range samples {
		p, err := t.PredictProbabilities(s)
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// leafFor walks the tree from the root following, at each decision,
// only the choice that holds for the sample.
func (t *Tree[T]) leafFor(s feature.Sample) (NodeID, error) {
	id := t.root
	for {
		n := &t.nodes[id]
		switch n.Kind {
		case Leaf:
			return id, nil
		case Choice:
			id = n.Child
		case Decision:
			value := s.ValueFor(n.Feature)
			left, right := &t.nodes[n.Left], &t.nodes[n.Right]
			switch {
			case left.Operator.Apply(value, left.Threshold):
				id = left.Child
			case right.Operator.Apply(value, right.Threshold):
				id = right.Child
			default:
				return NoNode, &NoBranchMatchedError{Feature: n.Feature, Value: value}
			}
		}
	}
}

/*
Traverse takes a bottomup boolean and an error-returning function and
goes depth first through the tree calling the function with the ID of
every node and a copy of it. A decision's left choice is traversed
before its right one. The function is called for a node before its
children if bottomup is false, and after them if bottomup is true.
If the function returns an error, the traversing is aborted and the
error is returned.
*/
func (t *Tree[T]) Traverse(bottomup bool, f func(NodeID, Node[T]) error) error {
	return t.traverse(t.root, bottomup, f)
}

func (t *Tree[T]) traverse(id NodeID, bottomup bool, f func(NodeID, Node[T]) error) error {
	n := &t.nodes[id]
	if !bottomup {
		if err := f(id, n.clone()); err != nil {
			return err
		}
	}
	var err error
	switch n.Kind {
	case Decision:
		if err = t.traverse(n.Left, bottomup, f); err == nil {
			err = t.traverse(n.Right, bottomup, f)
		}
	case Choice:
		err = t.traverse(n.Child, bottomup, f)
	}
	if err != nil {
		return err
	}
	if bottomup {
		return f(id, n.clone())
	}
	return nil
}

func (n *Node[T]) clone() Node[T] {
	c := *n
	if n.Weights != nil {
		c.Weights = append([]float64(nil), n.Weights...)
	}
	return c
}

func collectFeatureNames[T any](t *Tree[T]) []string {
	seen := make(map[string]bool)
	var names []string
	t.Traverse(false, func(_ NodeID, n Node[T]) error {
		if n.Kind == Decision && !seen[n.Feature] {
			seen[n.Feature] = true
			names = append(names, n.Feature)
		}
		return nil
	})
	sort.Strings(names)
	return names
}

func countLeaves[T any](t *Tree[T]) int {
	var count int
	t.Traverse(false, func(_ NodeID, n Node[T]) error {
		if n.Kind == Leaf {
			count++
		}
		return nil
	})
	return count
}

/*
String renders the tree back in the export grammar it is parsed
from, with thresholds and weights at full precision.
*/
func (t *Tree[T]) String() string {
	var sb strings.Builder
	t.render(&sb, t.root, 0)
	return sb.String()
}

func (t *Tree[T]) render(sb *strings.Builder, id NodeID, depth int) {
	n := &t.nodes[id]
	switch n.Kind {
	case Leaf:
		writeIndent(sb, depth)
		if n.Weights != nil {
			sb.WriteString(weightsPrefix)
			sb.WriteString(" [")
			for i, w := range n.Weights {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(strconv.FormatFloat(w, 'f', -1, 64))
			}
			sb.WriteString("] ")
		}
		sb.WriteString(classPrefix)
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprint(n.Value))
		sb.WriteString("\n")
	case Decision:
		for _, c := range []NodeID{n.Left, n.Right} {
			choice := &t.nodes[c]
			writeIndent(sb, depth)
			sb.WriteString(n.Feature)
			sb.WriteString(" ")
			sb.WriteString(choice.Operator.String())
			sb.WriteString(" ")
			sb.WriteString(strconv.FormatFloat(choice.Threshold, 'f', -1, 64))
			sb.WriteString("\n")
			t.render(sb, choice.Child, depth+1)
		}
	}
}

func writeIndent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("|   ", depth))
	sb.WriteString(branchMarker)
}

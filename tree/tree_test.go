package tree_test

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile[T any](t *testing.T, name string, dec tree.Decoder[T]) *tree.Tree[T] {
	t.Helper()
	tr, err := tree.ParseFile("testdata/"+name, dec)
	require.NoError(t, err)
	return tr
}

func TestSimpleTree(t *testing.T) {
	tr := parseFile(t, "simple-tree.model", tree.Bool)

	features, err := feature.New("feature1")
	require.NoError(t, err)

	sample1 := features.NewSample()
	require.NoError(t, sample1.SetIndex(0, 1.2))
	p, err := tr.Predict(sample1)
	require.NoError(t, err)
	assert.False(t, p)

	sample2 := features.NewSample()
	require.NoError(t, sample2.SetIndex(0, 2.4))
	p, err = tr.Predict(sample2)
	require.NoError(t, err)
	assert.True(t, p)

	assert.Equal(t, []string{"feature1"}, tr.FeatureNames())
	assert.Equal(t, 2, tr.Leaves())
	assert.Equal(t, 5, tr.Len())
}

func TestBoolTree(t *testing.T) {
	tr := parseFile(t, "bool-tree.model", tree.Bool)
	assert.Equal(t, []string{"feature1", "feature2", "feature3", "feature4", "feature5"}, tr.FeatureNames())
	assert.Equal(t, 7, tr.Leaves())

	base := feature.Map{"feature1": 0, "feature2": 5, "feature3": 0, "feature4": 0, "feature5": 0}
	tests := []struct {
		name     string
		changes  feature.Map
		expected bool
	}{
		{"deepest left", nil, false},
		{"deepest left right", feature.Map{"feature2": 11}, true},
		{"left right", feature.Map{"feature5": 1}, true},
		{"right left", feature.Map{"feature1": 1}, false},
		{"right right left", feature.Map{"feature1": 1, "feature3": 1, "feature4": 1}, true},
		{"right right right", feature.Map{"feature1": 1, "feature3": 1, "feature4": 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := feature.Map{}
			for k, v := range base {
				s[k] = v
			}
			for k, v := range tt.changes {
				s[k] = v
			}
			got, err := tr.Predict(s)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWeightedTree(t *testing.T) {
	tr := parseFile(t, "iris-tree.model", tree.Int)
	assert.Equal(t, []string{"petal length (cm)", "petal width (cm)"}, tr.FeatureNames())

	p, err := tr.Classify(feature.Map{"petal width (cm)": 1.0, "petal length (cm)": 4.0})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Value())
	assert.Equal(t, []float64{0, 47, 1}, p.Weights())
	probs, err := p.Probabilities()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 47.0 / 48, 1.0 / 48}, probs, 1e-12)

	probs, err = tr.PredictProbabilities(feature.Map{"petal width (cm)": 0.2, "petal length (cm)": 1.4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, probs)

	all, err := tr.PredictAll([]feature.Sample{
		feature.Map{"petal width (cm)": 2.0, "petal length (cm)": 6.0},
		feature.Map{"petal width (cm)": 1.5, "petal length (cm)": 5.0},
		feature.Map{"petal width (cm)": 0.1, "petal length (cm)": 1.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 0}, all)
}

func TestLeafProbabilities(t *testing.T) {
	tr, err := tree.ParseString("|--- f <= 1.00\n|   |--- weights: [7, 4] class: False\n|--- f >  1.00\n|   |--- weights: [0, 3] class: True\n", tree.Bool)
	require.NoError(t, err)

	probs, err := tr.PredictProbabilities(feature.Map{"f": 0})
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.6363636363, probs[0], 1e-8)
	assert.InDelta(t, 0.3636363636, probs[1], 1e-8)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)

	batch, err := tr.PredictProbabilitiesAll([]feature.Sample{feature.Map{"f": 2}, feature.Map{"f": 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, batch[0])
	assert.Equal(t, probs, batch[1])
}

func TestProbabilityUnavailable(t *testing.T) {
	tr := parseFile(t, "simple-tree.model", tree.Bool)
	s := feature.Map{"feature1": 3}

	_, err := tr.PredictProbabilities(s)
	assert.True(t, errors.Is(err, tree.ErrProbabilityUnavailable))

	p, err := tr.Predict(s)
	require.NoError(t, err)
	assert.True(t, p)
}

func TestMissingFeature(t *testing.T) {
	tr := parseFile(t, "bool-tree.model", tree.Bool)
	features, err := feature.New("feature11", "feature2", "feature3", "feature4", "feature5")
	require.NoError(t, err)
	s := features.NewSample()

	_, err = tr.Predict(s)
	var mfe *tree.MissingFeatureError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "feature1", mfe.Feature)
	assert.Equal(t, "expected feature named 'feature1' but none provided", err.Error())

	_, err = tr.PredictAll([]feature.Sample{feature.Map{"feature1": 1, "feature2": 1, "feature3": 1, "feature5": 0}})
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "feature4", mfe.Feature)
}

func TestNoBranchMatched(t *testing.T) {
	tr := parseFile(t, "simple-tree.model", tree.Bool)
	features, err := feature.New("feature1")
	require.NoError(t, err)

	_, err = tr.Predict(features.NewSample())
	var nbm *tree.NoBranchMatchedError
	require.True(t, errors.As(err, &nbm))
	assert.Equal(t, "feature1", nbm.Feature)
	assert.True(t, math.IsNaN(nbm.Value))

	gap, err := tree.ParseString("|--- f < 1\n|   |--- class: a\n|--- f >  1\n|   |--- class: b\n", tree.String)
	require.NoError(t, err)
	_, err = gap.Predict(feature.Map{"f": 1})
	assert.True(t, errors.As(err, &nbm))
}

func TestDeterministicPredictions(t *testing.T) {
	tr := parseFile(t, "iris-tree.model", tree.Float)
	s := feature.Map{"petal width (cm)": 1.7, "petal length (cm)": 5.1}
	first, err := tr.Classify(s)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		p, err := tr.Classify(s)
		require.NoError(t, err)
		assert.Equal(t, first.Value(), p.Value())
		assert.Equal(t, first.Weights(), p.Weights())
	}
}

func TestSingleLeafTree(t *testing.T) {
	tr, err := tree.ParseString("|--- class: 3\n", tree.Int)
	require.NoError(t, err)
	assert.Empty(t, tr.FeatureNames())
	assert.Equal(t, 1, tr.Leaves())
	assert.Equal(t, tree.Leaf, tr.Node(tr.Root()).Kind)

	v, err := tr.Predict(feature.Map{})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestStructure(t *testing.T) {
	for _, name := range []string{"simple-tree.model", "iris-tree.model", "bool-tree.model"} {
		t.Run(name, func(t *testing.T) {
			export, err := os.ReadFile("testdata/" + name)
			require.NoError(t, err)
			tr, err := tree.ParseString(string(export), tree.String)
			require.NoError(t, err)

			var leafLines int
			for _, l := range strings.Split(string(export), "\n") {
				if strings.Contains(l, "class: ") {
					leafLines++
				}
			}
			assert.Equal(t, leafLines, tr.Leaves())

			err = tr.Traverse(false, func(id tree.NodeID, n tree.Node[string]) error {
				switch n.Kind {
				case tree.Decision:
					assert.True(t, n.Complete(), "decision %d", id)
					assert.Equal(t, tree.Choice, tr.Node(n.Left).Kind)
					assert.Equal(t, tree.Choice, tr.Node(n.Right).Kind)
				case tree.Choice:
					assert.NotEqual(t, tree.NoNode, n.Child)
					assert.NotEqual(t, tree.Choice, tr.Node(n.Child).Kind)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	tr := parseFile(t, "iris-tree.model", tree.Int)
	again, err := tree.ParseString(tr.String(), tree.Int)
	require.NoError(t, err)
	assert.Equal(t, tr.String(), again.String())
	assert.Equal(t, tr.Len(), again.Len())
	assert.Contains(t, tr.String(), "|   |--- petal width (cm) <= 1.75\n")
	assert.Contains(t, tr.String(), "weights: [0, 47, 1] class: 1\n")
}

func TestTraverseOrder(t *testing.T) {
	tr := parseFile(t, "simple-tree.model", tree.Bool)

	var kinds []tree.Kind
	err := tr.Traverse(false, func(_ tree.NodeID, n tree.Node[bool]) error {
		kinds = append(kinds, n.Kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []tree.Kind{tree.Decision, tree.Choice, tree.Leaf, tree.Choice, tree.Leaf}, kinds)

	kinds = nil
	err = tr.Traverse(true, func(_ tree.NodeID, n tree.Node[bool]) error {
		kinds = append(kinds, n.Kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []tree.Kind{tree.Leaf, tree.Choice, tree.Leaf, tree.Choice, tree.Decision}, kinds)

	stop := errors.New("stop")
	var visited int
	err = tr.Traverse(false, func(_ tree.NodeID, n tree.Node[bool]) error {
		visited++
		if n.Kind == tree.Leaf {
			return stop
		}
		return nil
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 3, visited)
}

func TestNodeCopies(t *testing.T) {
	tr := parseFile(t, "iris-tree.model", tree.Int)
	var leaf tree.NodeID = tree.NoNode
	tr.Traverse(false, func(id tree.NodeID, n tree.Node[int]) error {
		if n.Kind == tree.Leaf && leaf == tree.NoNode {
			leaf = id
		}
		return nil
	})
	n := tr.Node(leaf)
	n.Weights[0] = 1000
	assert.Equal(t, 50.0, tr.Node(leaf).Weights[0])
}

package tree_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		export string
		line   int
		text   bool
	}{
		{"empty export", "", 0, false},
		{"blank export", "\n\n   \n", 3, false},
		{"unknown operator", "|--- f ~ 1\n", 1, true},
		{"missing feature", "|--- <= 1\n", 1, true},
		{"bad threshold", "|--- f <= abc\n", 1, true},
		{"bad weight", "|--- f <= 1\n|   |--- weights: [1, x] class: a\n", 2, true},
		{"malformed weights", "|--- f <= 1\n|   |--- weights: 1, 2 class: a\n", 2, true},
		{"empty weights", "|--- f <= 1\n|   |--- weights: [] class: a\n", 2, true},
		{"negative weight", "|--- f <= 1\n|   |--- weights: [1, -2] class: a\n", 2, true},
		{"malformed leaf", "|--- f <= 1\n|   |--- weights: [1, 2] klass: a\n", 2, true},
		{"unbalanced", "|--- f <= 1\n|   |--- class: a\n", 2, false},
		{"third branch", "|--- f <= 1\n|   |--- class: a\n|--- f >  1\n|   |--- class: b\n|--- f >  2\n", 5, true},
		{"leaf after single leaf", "|--- class: a\n|--- class: b\n", 2, true},
		{"leaf without open branch", "|--- f <= 1\n|   |--- class: a\n|   |--- class: b\n", 3, true},
		{"decision without open branch", "|--- f <= 1\n|   |--- class: a\n|--- g >  1\n", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.ParseString(tt.export, tree.String)
			require.Error(t, err)
			var pe *tree.ParseError
			require.True(t, errors.As(err, &pe), "unexpected error %v", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.text, pe.Text != "")
		})
	}
}

func TestParseDecoderError(t *testing.T) {
	_, err := tree.ParseString("|--- f <= 1\n|   |--- class: 1\n|--- f >  1\n|   |--- class: two\n", tree.Int)
	var pe *tree.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Line)
	assert.Contains(t, err.Error(), `decoding class "two"`)
}

func TestParseFileErrors(t *testing.T) {
	_, err := tree.ParseFile("testdata/does-not-exist.model", tree.Bool)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.model")

	_, err = tree.ParseFile("testdata/iris-tree.model", tree.Bool)
	var pe *tree.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 8, pe.Line)
}

func TestParseSkipsBlankLines(t *testing.T) {
	export := "\n|--- f <= 1\n\n|   |--- class: a\n|--- f >  1\n   \n|   |--- class: b\n\n"
	tr, err := tree.ParseString(export, tree.String)
	require.NoError(t, err)
	v, err := tr.Predict(feature.Map{"f": 5})
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestParseOperators(t *testing.T) {
	tests := []struct {
		line     string
		feature  string
		op       tree.Operator
		treshold float64
	}{
		{"|--- f <= 1.5", "f", tree.LessOrEqual, 1.5},
		{"|--- f >= 1.5", "f", tree.GreaterOrEqual, 1.5},
		{"|--- f < -1", "f", tree.Less, -1},
		{"|--- f >  2.00", "f", tree.Greater, 2},
		{"|--- color = 3", "color", tree.Equal, 3},
		{"|--- sepal length (cm) <= 5.45", "sepal length (cm)", tree.LessOrEqual, 5.45},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			export := tt.line + "\n|   |--- class: a\n" + tt.line + "\n|   |--- class: b\n"
			tr, err := tree.ParseString(export, tree.String)
			require.NoError(t, err)
			root := tr.Node(tr.Root())
			require.Equal(t, tree.Decision, root.Kind)
			assert.Equal(t, tt.feature, root.Feature)
			left := tr.Node(root.Left)
			assert.Equal(t, tt.op, left.Operator)
			assert.Equal(t, tt.treshold, left.Threshold)
		})
	}
}

func TestParseNestedSameFeature(t *testing.T) {
	export := strings.Join([]string{
		"|--- x <= 5.00",
		"|   |--- x <= 2.00",
		"|   |   |--- class: low",
		"|   |--- x >  2.00",
		"|   |   |--- class: mid",
		"|--- x >  5.00",
		"|   |--- class: high",
	}, "\n")
	tr, err := tree.ParseString(export, tree.String)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, tr.FeatureNames())

	for value, expected := range map[float64]string{1: "low", 3: "mid", 9: "high"} {
		v, err := tr.Predict(feature.Map{"x": value})
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}
}

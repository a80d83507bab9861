package yaml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbanos/grove/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFeatures(t *testing.T) {
	f, err := ReadFeatures([]byte("features:\n  - sepal length (cm)\n  - petal width (cm)\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sepal length (cm)", "petal width (cm)"}, f.Names())
}

func TestReadFeaturesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "other: 1\n"},
		{"not yaml", "features: [a\n"},
		{"wrong type", "features: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFeatures([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestReadFeaturesDuplicates(t *testing.T) {
	_, err := ReadFeatures([]byte("features: [a, b, a]\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, feature.ErrDuplicateFeature))
}

func TestReadFeaturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.yml")
	require.NoError(t, os.WriteFile(path, []byte("features: [x, y]\n"), 0o600))

	f, err := ReadFeaturesFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	_, err = ReadFeaturesFromFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

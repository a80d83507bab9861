package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
listen: ":9090"
workers: 4
redis:
  addr: localhost:6379
  db: 2
models:
- name: iris
  tree: models/iris.model
  classType: int
- name: churn
  forest: models/churn.tar.gz
  classType: bool
- name: stored
  redisKey: stored-forest
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Listen)
	assert.Equal(t, 4, c.Workers)
	require.NotNil(t, c.Redis)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, DefaultRedisPrefix, c.Redis.Prefix)
	require.Len(t, c.Models, 3)
	assert.Equal(t, &Model{Name: "iris", Tree: "models/iris.model", ClassType: ClassInt}, c.Models[0])
	assert.Equal(t, "models/churn.tar.gz", c.Models[1].Forest)
	assert.Equal(t, ClassString, c.Models[2].ClassType)
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("models:\n- name: m\n  tree: m.model\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, c.Listen)
	assert.Equal(t, 0, c.Workers)
	assert.Nil(t, c.Redis)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"no models":          "listen: :80\n",
		"unknown field":      "models:\n- name: m\n  tree: m.model\n  color: red\n",
		"no name":            "models:\n- tree: m.model\n",
		"repeated name":      "models:\n- name: m\n  tree: a.model\n- name: m\n  tree: b.model\n",
		"no source":          "models:\n- name: m\n",
		"two sources":        "models:\n- name: m\n  tree: a.model\n  forest: b.tar\n",
		"unknown class type": "models:\n- name: m\n  tree: a.model\n  classType: complex\n",
		"redis without addr": "models:\n- name: m\n  redisKey: m\n",
		"negative workers":   "workers: -1\nmodels:\n- name: m\n  tree: a.model\n",
		"invalid yaml":       "models: [\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Models, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

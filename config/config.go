/*
Package config holds the configuration of a grove prediction server,
read from a YAML document.
*/
package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// DefaultListen is the address a server listens on unless configured otherwise
const DefaultListen = ":8080"

// DefaultRedisPrefix is the prefix of the keys of stored models unless configured otherwise
const DefaultRedisPrefix = "grove"

// Class types a model can predict
const (
	ClassBool   = "bool"
	ClassInt    = "int"
	ClassFloat  = "float"
	ClassString = "string"
)

// Config is the configuration of a prediction server
type Config struct {
	Listen  string   `yaml:"listen"`
	Workers int      `yaml:"workers"`
	Redis   *Redis   `yaml:"redis"`
	Models  []*Model `yaml:"models"`
}

// Redis tells how to connect to the Redis DB models are stored on
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

/*
Model describes a served model: its name, exactly one source (a tree
export file, a forest archive or a key on the Redis store) and the
type of the classes it predicts, string by default.
*/
type Model struct {
	Name      string `yaml:"name"`
	Tree      string `yaml:"tree"`
	Forest    string `yaml:"forest"`
	RedisKey  string `yaml:"redisKey"`
	ClassType string `yaml:"classType"`
}

/*
Parse takes a slice of bytes with a YAML configuration and returns
the configuration parsed from it with defaults applied, or an error
if it cannot be parsed or is not valid.
*/
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing yml configuration")
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration at the given path with Parse
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration file %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading configuration file %s", path)
	}
	return c, nil
}

func (c *Config) setDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Redis != nil && c.Redis.Prefix == "" {
		c.Redis.Prefix = DefaultRedisPrefix
	}
	for _, m := range c.Models {
		if m != nil && m.ClassType == "" {
			m.ClassType = ClassString
		}
	}
}

/*
Validate returns an error if the configuration has no models, models
without a name, with a repeated name, with an unknown class type or
without exactly one source, or models on Redis without Redis settings.
*/
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("no models configured")
	}
	if c.Workers < 0 {
		return errors.Errorf("invalid number of workers %d", c.Workers)
	}
	names := make(map[string]bool)
	for i, m := range c.Models {
		if m == nil || m.Name == "" {
			return errors.Errorf("model %d has no name", i)
		}
		if names[m.Name] {
			return errors.Errorf("model %q configured more than once", m.Name)
		}
		names[m.Name] = true
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "model %q", m.Name)
		}
		if m.RedisKey != "" && (c.Redis == nil || c.Redis.Addr == "") {
			return errors.Errorf("model %q is stored on redis but no redis address is configured", m.Name)
		}
	}
	return nil
}

// Validate returns an error if the model has not exactly one source or an unknown class type
func (m *Model) Validate() error {
	var sources int
	for _, s := range []string{m.Tree, m.Forest, m.RedisKey} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.Errorf("expected exactly one of tree, forest or redisKey, got %d", sources)
	}
	switch m.ClassType {
	case ClassBool, ClassInt, ClassFloat, ClassString:
		return nil
	}
	return errors.Errorf("unknown class type %q", m.ClassType)
}

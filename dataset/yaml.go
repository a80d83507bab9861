package dataset

import (
	"fmt"
	"io"
	"io/ioutil"
	"sort"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/pbanos/grove/feature"
)

/*
ReadYAML takes an io.Reader with a YAML sequence of mappings of feature
names to values and returns the sorted features named anywhere on it and
a sample per mapping, in order, or an error.

A feature absent from a mapping is missing from its sample, while a null
or '?' value makes it undefined.
*/
func ReadYAML(reader io.Reader) (*feature.Features, []feature.Sample, error) {
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading yml samples")
	}
	var docs []map[interface{}]interface{}
	if err = yaml.Unmarshal(data, &docs); err != nil {
		return nil, nil, errors.Wrap(err, "parsing yml samples")
	}
	seen := make(map[string]bool)
	var names []string
	samples := make([]feature.Sample, 0, len(docs))
	for i, doc := range docs {
		sample := feature.Map{}
		for k, v := range doc {
			name := fmt.Sprintf("%v", k)
			value, err := Value(v)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "parsing sample %d: value for feature %s", i, name)
			}
			sample[name] = value
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		samples = append(samples, sample)
	}
	sort.Strings(names)
	features := feature.FromNames(names)
	features.Freeze()
	return features, samples, nil
}

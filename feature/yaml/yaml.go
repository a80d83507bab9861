/*
Package yaml provides methods to parse feature.Features indexes
also known as metadata, from YAML documents.
*/
package yaml

import (
	"io/ioutil"

	"github.com/pbanos/grove/feature"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

/*
ReadFeatures takes a slice of bytes with a list of features in YML and
returns the feature index parsed from it or an error.
The YML is expected to be an object containing a features property. The value
for this should be a list with the names of the features in the order they
take on samples:

	features:
	  - sepal length (cm)
	  - sepal width (cm)
*/
func ReadFeatures(md []byte) (*feature.Features, error) {
	metadata := struct {
		Features []string `yaml:"features"`
	}{}
	err := yaml.Unmarshal(md, &metadata)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yml features")
	}
	if len(metadata.Features) == 0 {
		return nil, errors.New("metadata file has no feature information")
	}
	return feature.New(metadata.Features...)
}

/*
ReadFeaturesFromFile takes a filepath string, reads its contents and uses
ReadFeatures to parse it and return the parsed feature index or an error.
If the file indicated by the filepath cannot be opened for reading an error
will be returned.
*/
func ReadFeaturesFromFile(filepath string) (*feature.Features, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading features yml file %s", filepath)
	}
	features, err := ReadFeatures(md)
	if err != nil {
		err = errors.Wrapf(err, "parsing features yml file %s", filepath)
	}
	return features, err
}

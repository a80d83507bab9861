package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/feature"
)

/*
ReadFile takes a filepath string, opens the file to which the filepath
points to and reads samples from it with ReadYAML if its extension is
.yml or .yaml, or ReadCSV otherwise. An empty filepath or "-" reads CSV
from the standard input.
*/
func ReadFile(path string) (*feature.Features, []feature.Sample, error) {
	var f *os.File
	var err error
	if path == "" || path == "-" {
		f = os.Stdin
	} else {
		f, err = os.Open(path)
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading samples")
		}
		defer f.Close()
	}
	read := ReadCSV
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		read = ReadYAML
	}
	features, samples, err := read(io.Reader(f))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing samples file %s", path)
	}
	return features, samples, nil
}

package dataset

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/feature"
)

/*
ReadCSV takes an io.Reader for a CSV stream and returns the features
named on its header and the samples parsed from the rest of the rows,
in order, or an error.

The header or first row of the CSV content is expected to consist of
feature names. The rest of the rows should consist of numeric values,
true or false, and/or the '?' string or an empty cell to indicate an
undefined value.
*/
func ReadCSV(reader io.Reader) (*feature.Features, []feature.Sample, error) {
	samples := []feature.Sample{}
	features, err := ReadCSVBySample(reader, func(_ int, s *feature.Vector) (bool, error) {
		samples = append(samples, s)
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return features, samples, nil
}

/*
ReadCSVBySample takes an io.Reader for a CSV stream and a lambda function
on an integer and a *feature.Vector that returns a boolean value.
It parses the samples from the reader and for each it calls the lambda
function with the sample and its index as parameters. If the lambda
function returns true, it will continue processing the next sample,
otherwise it will stop. It returns the features read from the header
and an error if something goes wrong when reading the stream or parsing
a sample.
*/
func ReadCSVBySample(reader io.Reader, lambda func(int, *feature.Vector) (bool, error)) (*feature.Features, error) {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	features, err := feature.New(header...)
	if err != nil {
		return nil, errors.Wrap(err, "parsing header")
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		sample, err := parseSampleFromCSVRow(row, features)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing line %d", l)
		}
		ok, err := lambda(l-2, sample)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	features.Freeze()
	return features, nil
}

func parseSampleFromCSVRow(row []string, features *feature.Features) (*feature.Vector, error) {
	sample := features.NewSample()
	for i, v := range row {
		value, err := parseValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "value for feature %s", features.Names()[i])
		}
		if err = sample.SetIndex(i, value); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

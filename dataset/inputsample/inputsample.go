/*
Package inputsample provides a way to build a feature.Sample whose values
are read from an io.Reader, usually answering questions on a terminal.
*/
package inputsample

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/feature"
)

/*
FeatureValueRequester represents a way to ask
for feature values and reject the given values.
*/
type FeatureValueRequester interface {
	RequestValueFor(name string) error
	RejectValueFor(name string, value string) error
}

/*
Read takes an io.Reader, the names of the features to ask for, a
FeatureValueRequester and an undefinedValue coding string and returns a
sample with a value for each of the names.

Values are read one per line, after requesting them with the given
FeatureValueRequester. Lines that are neither a real number, true, false
nor the undefinedValue are rejected with the requester's RejectValueFor
method, and the next line is read instead. An undefinedValue line sets
the feature as undefined, that is, to NaN.

An error is returned if the reader is exhausted before every value is
obtained or if the requester fails.
*/
func Read(r io.Reader, names []string, fvr FeatureValueRequester, undefinedValue string) (*feature.Vector, error) {
	features, err := feature.New(names...)
	if err != nil {
		return nil, err
	}
	sample := features.NewSample()
	scanner := bufio.NewScanner(r)
	for i, name := range names {
		err = fvr.RequestValueFor(name)
		if err != nil {
			return nil, err
		}
		value, err := readValue(scanner, name, fvr, undefinedValue)
		if err != nil {
			return nil, err
		}
		err = sample.SetIndex(i, value)
		if err != nil {
			return nil, err
		}
	}
	return sample, nil
}

func readValue(scanner *bufio.Scanner, name string, fvr FeatureValueRequester, undefinedValue string) (float64, error) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == undefinedValue {
			return math.NaN(), nil
		}
		if value, ok := parseLine(line); ok {
			return value, nil
		}
		err := fvr.RejectValueFor(name, line)
		if err != nil {
			return 0, err
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrapf(err, "reading value for %s", name)
	}
	return 0, fmt.Errorf("EOF when requesting value for %s", name)
}

func parseLine(line string) (float64, bool) {
	switch strings.ToLower(line) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

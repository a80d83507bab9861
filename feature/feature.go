/*
Package feature provides the named feature index used to build samples
and the Sample abstraction trees read values from.
*/
package feature

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ConfigurationError represents a misuse of a feature index
type ConfigurationError string

const (
	/*
		ErrDuplicateFeature is returned when the same feature name is
		given more than once to build a feature index.
	*/
	ErrDuplicateFeature = ConfigurationError("features names are not unique")
	/*
		ErrFeaturesFrozen is returned when trying to add a feature to
		an index from which samples have already been created.
	*/
	ErrFeaturesFrozen = ConfigurationError("features are immutable")
	/*
		ErrUnknownFeature is returned when a feature name is not part
		of the index.
	*/
	ErrUnknownFeature = ConfigurationError("feature does not exist")
)

func (ce ConfigurationError) Error() string {
	return string(ce)
}

/*
Features maps feature names to stable positions on the dense
vectors created with NewSample. Features can be added until the
first sample is created, from then on the index is frozen.

It is safe for concurrent use.
*/
type Features struct {
	lock   sync.RWMutex
	index  map[string]int
	names  []string
	frozen bool
}

/*
New takes a list of feature names and returns a Features index
where each name is placed at its position on the list. It returns
ErrDuplicateFeature if any name appears more than once.
*/
func New(names ...string) (*Features, error) {
	f := &Features{index: make(map[string]int, len(names))}
	for _, n := range names {
		if _, ok := f.index[n]; ok {
			return nil, errors.Wrapf(ErrDuplicateFeature, "feature %q", n)
		}
		f.index[n] = len(f.names)
		f.names = append(f.names, n)
	}
	return f, nil
}

/*
FromNames returns a Features index for the given names, ignoring
repeated ones.
*/
func FromNames(names []string) *Features {
	f := &Features{index: make(map[string]int, len(names))}
	for _, n := range names {
		if _, ok := f.index[n]; ok {
			continue
		}
		f.index[n] = len(f.names)
		f.names = append(f.names, n)
	}
	return f
}

/*
Add takes a feature name and appends it to the index. Adding
a name already in the index does nothing. It returns
ErrFeaturesFrozen if samples have been created from the index.
*/
func (f *Features) Add(name string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.frozen {
		return errors.Wrapf(ErrFeaturesFrozen, "adding feature %q", name)
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if _, ok := f.index[name]; ok {
		return nil
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	return nil
}

// Len returns the number of features in the index
func (f *Features) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.names)
}

/*
Index returns the position of the named feature on the
samples created from the index, or ErrUnknownFeature.
*/
func (f *Features) Index(name string) (int, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	i, ok := f.index[name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownFeature, "feature %s", name)
	}
	return i, nil
}

// Has returns whether the named feature is part of the index
func (f *Features) Has(name string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	_, ok := f.index[name]
	return ok
}

// Names returns the feature names in index order
func (f *Features) Names() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]string(nil), f.names...)
}

// Frozen returns whether samples have been created from the index
func (f *Features) Frozen() bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.frozen
}

// Freeze prevents any further additions to the index
func (f *Features) Freeze() {
	f.lock.Lock()
	f.frozen = true
	f.lock.Unlock()
}

/*
NewSample freezes the index and returns an empty Vector sized
to it. Every value on the vector starts undefined.
*/
func (f *Features) NewSample() *Vector {
	f.lock.Lock()
	f.frozen = true
	n := len(f.names)
	f.lock.Unlock()
	return newVector(f, n)
}

/*
Missing takes a list of feature names and returns those not
defined by the sample, sorted.
*/
func Missing(s Sample, names []string) []string {
	var missing []string
	for _, n := range names {
		if !s.HasFeature(n) {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return missing
}

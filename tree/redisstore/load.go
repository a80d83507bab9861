package redisstore

import (
	"bytes"
	"context"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/tree"
)

/*
LoadTree takes a context, a Store, a model name and a decoder and
returns the tree parsed from the single export stored under the name.
*/
func LoadTree[T any](ctx context.Context, s *Store, name string, dec tree.Decoder[T]) (*tree.Tree[T], error) {
	exports, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(exports) != 1 {
		return nil, errors.Errorf("model %q is a forest of %d trees", name, len(exports))
	}
	t, err := tree.Parse(bytes.NewReader(exports[0]), dec)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing model %q", name)
	}
	return t, nil
}

/*
LoadForest takes a context, a Store, a model name, a decoder and forest
options and returns a forest with a tree per export stored under the name.
*/
func LoadForest[T comparable](ctx context.Context, s *Store, name string, dec tree.Decoder[T], opts ...forest.Option) (*forest.Forest[T], error) {
	exports, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Tree[T], len(exports))
	for i, e := range exports {
		trees[i], err = tree.Parse(bytes.NewReader(e), dec)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing tree %d of model %q", i, name)
		}
	}
	return forest.New(trees, opts...)
}

/*
Package redisstore keeps tree exports in Redis so that serving
processes can load models by name.
*/
package redisstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// StoreError represents an error related with stored models
type StoreError string

// ErrNotFound is returned for names with no stored exports
const ErrNotFound = StoreError("no model stored under that name")

// ErrNoExports is returned when storing a forest without exports
const ErrNoExports = StoreError("no exports to store")

func (se StoreError) Error() string {
	return string(se)
}

// chunkSize is the number of exports pushed per RPUSH command
const chunkSize = 64

/*
Store keeps models as Redis lists of exports under <prefix>:model:<name>,
a single element list for a tree, and the set of stored names under
<prefix>:models.
*/
type Store struct {
	rc     redis.Cmdable
	prefix string
}

// New builds a Store backed by a redis DB
func New(rc redis.Cmdable, prefix string) *Store {
	return &Store{rc, prefix}
}

// PutTree stores the export of a tree under the given name, replacing any model stored there
func (s *Store) PutTree(ctx context.Context, name string, export []byte) error {
	return s.put(ctx, name, [][]byte{export})
}

/*
PutForest stores the exports of the trees of a forest, in order, under
the given name, replacing any model stored there. Exports are pushed
onto a staging key which is renamed once complete, so readers never
see a partially stored forest.
*/
func (s *Store) PutForest(ctx context.Context, name string, exports [][]byte) error {
	if len(exports) == 0 {
		return ErrNoExports
	}
	return s.put(ctx, name, exports)
}

func (s *Store) put(ctx context.Context, name string, exports [][]byte) error {
	staging := s.keyFor("staging", randString(20))
	for start := 0; start < len(exports); start += chunkSize {
		end := start + chunkSize
		if end > len(exports) {
			end = len(exports)
		}
		values := make([]interface{}, 0, end-start)
		for _, e := range exports[start:end] {
			values = append(values, e)
		}
		if err := s.rc.RPush(ctx, staging, values...).Err(); err != nil {
			s.rc.Del(context.Background(), staging)
			return errors.Wrapf(err, "storing model %q in redis", name)
		}
	}
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Rename(ctx, staging, s.keyFor("model", name))
		pipe.SAdd(ctx, s.indexKey(), name)
		return nil
	})
	if err != nil {
		s.rc.Del(context.Background(), staging)
		return errors.Wrapf(err, "storing model %q in redis", name)
	}
	return nil
}

/*
Get returns the exports stored under the given name, in order, or
ErrNotFound.
*/
func (s *Store) Get(ctx context.Context, name string) ([][]byte, error) {
	data, err := s.rc.LRange(ctx, s.keyFor("model", name), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving model %q", name)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "retrieving model %q", name)
	}
	exports := make([][]byte, len(data))
	for i, d := range data {
		exports[i] = []byte(d)
	}
	return exports, nil
}

// Names returns the sorted names of the stored models
func (s *Store) Names(ctx context.Context) ([]string, error) {
	names, err := s.rc.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing models in redis")
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the model stored under the given name or returns ErrNotFound
func (s *Store) Delete(ctx context.Context, name string) error {
	var del *redis.IntCmd
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keyFor("model", name))
		pipe.SRem(ctx, s.indexKey(), name)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "deleting model %q from redis", name)
	}
	if del.Val() == 0 {
		return errors.Wrapf(ErrNotFound, "deleting model %q", name)
	}
	return nil
}

func (s *Store) keyFor(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}

func (s *Store) indexKey() string {
	return fmt.Sprintf("%s:models", s.prefix)
}

func randString(n int) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	str := make([]byte, n)
	for i := range str {
		str[i] = chars[rand.IntN(len(chars))]
	}
	return string(str)
}

/*
Package mongodataset provides a way to read samples to predict for from
the documents of a MongoDB collection.
*/
package mongodataset

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/pbanos/grove/dataset"
	"github.com/pbanos/grove/feature"
)

const (
	// DefaultCollection is the collection samples are read from when none is given
	DefaultCollection = "samples"
	idField           = "_id"
	dialTimeout       = 10 * time.Second
)

// IsURL returns whether the given source is a MongoDB connection URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "mongodb://")
}

/*
Dial takes a MongoDB connection URL and returns a session on it. The
database named on the URL is the one samples are read from.
*/
func Dial(url string) (*mgo.Session, error) {
	session, err := mgo.DialWithTimeout(url, dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	return session, nil
}

/*
ParseQuery takes a JSON object with a MongoDB filter and returns it as
a bson.M. An empty string is parsed as a filter matching every document.
*/
func ParseQuery(q string) (bson.M, error) {
	query := bson.M{}
	if strings.TrimSpace(q) == "" {
		return query, nil
	}
	err := json.Unmarshal([]byte(q), &query)
	if err != nil {
		return nil, errors.Wrap(err, "parsing mongodb query")
	}
	return query, nil
}

/*
Read takes a context, a MongoDB session, a collection name and a filter
and returns a sample for every matching document, in natural order.

Every field but _id is taken as a feature, and the returned features
are the sorted union of the fields of all documents. Documents lacking
a field give samples without that feature. Null values and "?" strings
are undefined values.
*/
func Read(ctx context.Context, session *mgo.Session, collection string, query bson.M) (*feature.Features, []feature.Sample, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	iter := session.DB("").C(collection).Find(query).Iter()
	defer iter.Close()
	var docs []bson.M
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc := bson.M{}
		if !iter.Next(&doc) {
			break
		}
		docs = append(docs, doc)
	}
	if err := iter.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "reading samples from collection %s", collection)
	}
	return fromDocuments(docs)
}

func fromDocuments(docs []bson.M) (*feature.Features, []feature.Sample, error) {
	seen := make(map[string]bool)
	var names []string
	samples := make([]feature.Sample, 0, len(docs))
	for i, doc := range docs {
		sample := make(feature.Map, len(doc))
		for name, v := range doc {
			if name == idField {
				continue
			}
			value, err := dataset.Value(v)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "document %d field %s", i, name)
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
	features, err := feature.New(names...)
	if err != nil {
		return nil, nil, err
	}
	features.Freeze()
	return features, samples, nil
}

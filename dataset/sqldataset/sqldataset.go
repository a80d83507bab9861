package sqldataset

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/feature"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

/*
Open takes a data source name and returns a database handle for it:
a PostgreSQL connection for postgres:// and postgresql:// URLs, an
SQLite3 database for anything else, taken as a file path.
*/
func Open(dsn string) (*sql.DB, error) {
	driver := "sqlite3"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "postgres"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	return db, nil
}

// IsDSN returns whether the given source names a database rather than a file of samples
func IsDSN(source string) bool {
	if strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://") {
		return true
	}
	switch strings.ToLower(source[strings.LastIndex(source, ".")+1:]) {
	case "db", "sqlite", "sqlite3":
		return true
	}
	return false
}

/*
Read takes a context, a database handle, a query and its arguments and
returns the features named after the columns of the result set and a
sample per row, in order, or an error.
*/
func Read(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*feature.Features, []feature.Sample, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying samples")
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading sample columns")
	}
	features, err := feature.New(columns...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading sample columns")
	}
	samples := []feature.Sample{}
	raw := make([]interface{}, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, nil, errors.Wrapf(err, "scanning sample %d", len(samples))
		}
		sample := features.NewSample()
		for i, v := range raw {
			value, err := valueOf(v)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "scanning sample %d: column %s", len(samples), columns[i])
			}
			sample.SetIndex(i, value)
		}
		samples = append(samples, sample)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "iterating on samples")
	}
	features.Freeze()
	return features, samples, nil
}

func valueOf(v interface{}) (float64, error) {
	switch v := v.(type) {
	case nil:
		return math.NaN(), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		return feature.BoolValue(v), nil
	case []byte:
		return parseText(string(v))
	case string:
		return parseText(v)
	}
	return 0, errors.Errorf("unsupported value %v of type %T", v, v)
}

func parseText(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return 0, errors.Errorf("invalid value %q", s)
	}
	return feature.BoolValue(b), nil
}

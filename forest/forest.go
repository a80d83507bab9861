/*
Package forest aggregates the predictions of several decision trees
into a majority vote and an averaged probability vector.
*/
package forest

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/tree"
)

// Error represents an error building or querying a forest
type Error string

// ErrEmptyForest is returned when a forest is built without trees
const ErrEmptyForest = Error("a forest needs at least one tree")

/*
ErrProbabilityShape is returned when the trees of a forest emit
probability vectors of different lengths, which cannot be averaged.
*/
const ErrProbabilityShape = Error("trees emit probability vectors of different lengths")

func (e Error) Error() string {
	return string(e)
}

// Option configures a Forest
type Option func(*options)

type options struct {
	workers int
	logger  *zap.Logger
}

/*
WithWorkers sets the number of goroutines a forest fans the
prediction of its trees out to. Values under 2 keep predictions
sequential. The actual number never exceeds GOMAXPROCS or the
number of trees.
*/
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger of a forest, a no-op logger by default
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

/*
Forest is an ordered collection of independently built trees whose
predictions are aggregated by vote and by average. It is safe for
concurrent use.
*/
type Forest[T comparable] struct {
	trees    []*tree.Tree[T]
	features []string
	workers  int
	logger   *zap.Logger
}

/*
New takes a slice of trees and options and returns a forest of
them, or ErrEmptyForest if no trees are given.
*/
func New[T comparable](trees []*tree.Tree[T], opts ...Option) (*Forest[T], error) {
	if len(trees) == 0 {
		return nil, ErrEmptyForest
	}
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	seen := make(map[string]bool)
	var features []string
	for _, t := range trees {
		for _, name := range t.FeatureNames() {
			if !seen[name] {
				seen[name] = true
				features = append(features, name)
			}
		}
	}
	sort.Strings(features)
	return &Forest[T]{
		trees:    append([]*tree.Tree[T](nil), trees...),
		features: features,
		workers:  o.workers,
		logger:   o.logger,
	}, nil
}

// Len returns the number of trees in the forest
func (f *Forest[T]) Len() int {
	return len(f.trees)
}

// Trees returns the trees of the forest in order
func (f *Forest[T]) Trees() []*tree.Tree[T] {
	return append([]*tree.Tree[T](nil), f.trees...)
}

// FeatureNames returns the sorted union of the feature names of the trees
func (f *Forest[T]) FeatureNames() []string {
	return append([]string(nil), f.features...)
}

/*
Validate returns a *tree.MissingFeatureError for the first feature,
in name order, any tree of the forest asks about and the sample does
not define.
*/
func (f *Forest[T]) Validate(s feature.Sample) error {
	for _, name := range f.features {
		if !s.HasFeature(name) {
			return &tree.MissingFeatureError{Feature: name}
		}
	}
	return nil
}

// Predict returns the class most trees predict for the sample
func (f *Forest[T]) Predict(ctx context.Context, s feature.Sample) (T, error) {
	result, err := f.PredictAll(ctx, []feature.Sample{s})
	if err != nil {
		var zero T
		return zero, err
	}
	return result[0], nil
}

/*
PredictAll returns the class most trees predict for each sample, at
its position. Ties are broken in favour of the class first predicted,
going through the trees in order. Any failing tree aborts the batch.
*/
func (f *Forest[T]) PredictAll(ctx context.Context, samples []feature.Sample) ([]T, error) {
	table, err := f.predictions(ctx, samples)
	if err != nil {
		return nil, err
	}
	result := make([]T, len(samples))
	for i := range samples {
		result[i] = vote(table, i)
	}
	return result, nil
}

// PredictProbabilities returns the average of the probability vectors of the trees
func (f *Forest[T]) PredictProbabilities(ctx context.Context, s feature.Sample) ([]float64, error) {
	result, err := f.PredictProbabilitiesAll(ctx, []feature.Sample{s})
	if err != nil {
		return nil, err
	}
	return result[0], nil
}

/*
PredictProbabilitiesAll returns, for each sample at its position, the
element-wise average of the probability vectors of all trees. Trees
exported without weights make it fail with tree.ErrProbabilityUnavailable
and vectors of different lengths with ErrProbabilityShape.
*/
func (f *Forest[T]) PredictProbabilitiesAll(ctx context.Context, samples []feature.Sample) ([][]float64, error) {
	table, err := f.predictions(ctx, samples)
	if err != nil {
		return nil, err
	}
	result := make([][]float64, len(samples))
	for i := range samples {
		result[i], err = average(table, i)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

/*
Classify returns a prediction per sample holding the voted class
and, as weights, the averaged probabilities of the trees. Weights
are left nil when the trees cannot provide probabilities.
*/
func (f *Forest[T]) Classify(ctx context.Context, samples []feature.Sample) ([]*tree.Prediction[T], error) {
	table, err := f.predictions(ctx, samples)
	if err != nil {
		return nil, err
	}
	result := make([]*tree.Prediction[T], len(samples))
	for i := range samples {
		probs, err := average(table, i)
		if err != nil {
			probs = nil
		}
		result[i] = tree.NewPrediction(vote(table, i), probs)
	}
	return result, nil
}

/*
predictions returns a table with the prediction of every tree, in
tree order, for every sample.
*/
func (f *Forest[T]) predictions(ctx context.Context, samples []feature.Sample) ([][]*tree.Prediction[T], error) {
	for _, s := range samples {
		if err := f.Validate(s); err != nil {
			return nil, err
		}
	}
	workers := f.workers
	if p := runtime.GOMAXPROCS(0); workers > p {
		workers = p
	}
	if workers > len(f.trees) {
		workers = len(f.trees)
	}
	if workers < 2 {
		return f.predictSequentially(ctx, samples)
	}
	return f.predictInParallel(ctx, samples, workers)
}

func (f *Forest[T]) predictSequentially(ctx context.Context, samples []feature.Sample) ([][]*tree.Prediction[T], error) {
	table := make([][]*tree.Prediction[T], len(f.trees))
	for i, t := range f.trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := classifyAll(t, samples)
		if err != nil {
			return nil, err
		}
		table[i] = row
	}
	return table, nil
}

type partialResult[T any] struct {
	tree int
	row  []*tree.Prediction[T]
}

/*
predictInParallel deals the trees round-robin to the given number of
workers. Each worker fills its own partial results, which are put back
in tree order once all of them are done.
*/
func (f *Forest[T]) predictInParallel(ctx context.Context, samples []feature.Sample, workers int) ([][]*tree.Prediction[T], error) {
	f.logger.Debug("predicting in parallel", zap.Int("trees", len(f.trees)), zap.Int("workers", workers), zap.Int("samples", len(samples)))
	partials := make([][]partialResult[T], workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			var results []partialResult[T]
			for i := w; i < len(f.trees); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				row, err := classifyAll(f.trees[i], samples)
				if err != nil {
					return err
				}
				results = append(results, partialResult[T]{tree: i, row: row})
			}
			partials[w] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	table := make([][]*tree.Prediction[T], len(f.trees))
	for _, results := range partials {
		for _, r := range results {
			table[r.tree] = r.row
		}
	}
	return table, nil
}

func classifyAll[T any](t *tree.Tree[T], samples []feature.Sample) ([]*tree.Prediction[T], error) {
	row := make([]*tree.Prediction[T], len(samples))
	for i, s := range samples {
		p, err := t.Classify(s)
		if err != nil {
			return nil, err
		}
		row[i] = p
	}
	return row, nil
}

// vote tallies the values predicted for sample i in tree order and
// returns the first one to have been tallied among the most voted.
func vote[T comparable](table [][]*tree.Prediction[T], i int) T {
	counts := make(map[T]int)
	var order []T
	for _, row := range table {
		v := row[i].Value()
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	winner := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[winner] {
			winner = v
		}
	}
	return winner
}

func average[T any](table [][]*tree.Prediction[T], i int) ([]float64, error) {
	var sum []float64
	for _, row := range table {
		probs, err := row[i].Probabilities()
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float64, len(probs))
		} else if len(probs) != len(sum) {
			return nil, ErrProbabilityShape
		}
		for j, p := range probs {
			sum[j] += p
		}
	}
	n := float64(len(table))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}

package ranking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyTrainingSet is returned when a forest is fitted on no samples.
var ErrEmptyTrainingSet = errors.New("empty training set")

// ForestParams configures the random-forest regressor.
type ForestParams struct {
	Trees           int   `yaml:"trees"`
	Seed            int64 `yaml:"seed"`
	MinSamplesSplit int   `yaml:"min_samples_split"`
	MaxDepth        int   `yaml:"max_depth"` // 0 = unlimited
	Workers         int   `yaml:"workers"`   // 0 = GOMAXPROCS
}

// DefaultForestParams returns 100 bootstrapped trees, seed 42, min split 2,
// unlimited depth.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           100,
		Seed:            42,
		MinSamplesSplit: 2,
	}
}

// node is one node of a regression tree. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Forest is a bagged ensemble of CART regression trees. Every feature is a
// split candidate at every node; randomness comes from the bootstrap only.
type Forest struct {
	params ForestParams
	trees  []*tree
}

// NewForest creates an unfitted forest.
func NewForest(params ForestParams) *Forest {
	if params.Trees <= 0 {
		params.Trees = DefaultForestParams().Trees
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	return &Forest{params: params}
}

// Fit trains the trees in parallel. Tree i draws its bootstrap sample from
// an RNG seeded with (Seed, i), so the fitted forest does not depend on
// goroutine scheduling.
func (f *Forest) Fit(ctx context.Context, x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return fmt.Errorf("fit forest: %d samples but %d targets", len(x), len(y))
	}

	workers := f.params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*tree, f.params.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.params.Seed*1_000_003 + int64(i)))
			b := &builder{
				x:        x,
				y:        y,
				minSplit: f.params.MinSamplesSplit,
				maxDepth: f.params.MaxDepth,
			}
			trees[i] = b.build(bootstrap(rng, len(x)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}

	f.trees = trees
	return nil
}

// Predict averages the tree outputs for each row. An unfitted forest predicts 0.
func (f *Forest) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	if len(f.trees) == 0 {
		return out
	}
	for i, row := range x {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out
}

func bootstrap(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// builder grows one tree over a fixed sample matrix.
type builder struct {
	x        [][]float64
	y        []float64
	minSplit int
	maxDepth int
	nodes    []node
}

func (b *builder) build(samples []int) *tree {
	b.nodes = b.nodes[:0]
	b.grow(samples, 0)
	return &tree{nodes: b.nodes}
}

// grow appends the subtree for samples and returns its root index.
func (b *builder) grow(samples []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{feature: -1, value: b.mean(samples)})

	if len(samples) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].feature = feature
	b.nodes[idx].threshold = threshold
	b.nodes[idx].left = l
	b.nodes[idx].right = r
	return idx
}

func (b *builder) mean(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += b.y[s]
	}
	return sum / float64(len(samples))
}

// bestSplit finds the (feature, threshold) minimizing the summed squared
// error of the two children. Thresholds are midpoints between distinct
// adjacent values. Returns ok=false when no split reduces the error.
func (b *builder) bestSplit(samples []int) (int, float64, bool) {
	n := len(samples)
	totalSum, totalSq := 0.0, 0.0
	for _, s := range samples {
		totalSum += b.y[s]
		totalSq += b.y[s] * b.y[s]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestFeature, bestThreshold := -1, 0.0
	bestSSE := parentSSE
	sorted := make([]int, n)
	features := len(b.x[samples[0]])

	for f := 0; f < features; f++ {
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		leftSum, leftSq := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			yv := b.y[sorted[i]]
			leftSum += yv
			leftSq += yv * yv

			cur, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}

			nl := float64(i + 1)
			nr := float64(n - i - 1)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

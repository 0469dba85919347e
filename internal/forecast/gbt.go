// internal/forecast/gbt.go
package forecast

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"
)

// GBTParams configures the gradient-boosted tree regressor.
type GBTParams struct {
	Rounds         int
	LearningRate   float64
	MaxDepth       int
	Subsample      float64 // fraction of rows sampled per round
	ColSample      float64 // fraction of features sampled per round
	MinSamplesLeaf int
	Seed           int64
	TimeBudget     time.Duration // 0 means unbounded
}

// DefaultGBTParams mirrors the tuning the production model shipped with.
func DefaultGBTParams() GBTParams {
	return GBTParams{
		Rounds:         100,
		LearningRate:   0.1,
		MaxDepth:       6,
		Subsample:      0.8,
		ColSample:      0.8,
		MinSamplesLeaf: 1,
		Seed:           42,
	}
}

// GBTRegressor fits an additive ensemble of depth-limited regression trees to the
// squared-error gradient. Fitting is deterministic for a fixed seed.
type GBTRegressor struct {
	params GBTParams
	base   float64
	trees  []*treeNode
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func NewGBTRegressor(params GBTParams) *GBTRegressor {
	if params.Rounds <= 0 {
		params.Rounds = 100
	}
	if params.LearningRate <= 0 {
		params.LearningRate = 0.1
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = 6
	}
	if params.Subsample <= 0 || params.Subsample > 1 {
		params.Subsample = 1
	}
	if params.ColSample <= 0 || params.ColSample > 1 {
		params.ColSample = 1
	}
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	return &GBTRegressor{params: params}
}

// Fit trains the ensemble. Boosting stops early when the time budget runs out;
// the rounds completed so far remain usable.
func (g *GBTRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("gbt: empty or mismatched training data")
	}
	numFeatures := len(X[0])
	if numFeatures == 0 {
		return errors.New("gbt: no features")
	}

	rng := rand.New(rand.NewSource(g.params.Seed))
	deadline := time.Time{}
	if g.params.TimeBudget > 0 {
		deadline = time.Now().Add(g.params.TimeBudget)
	}

	g.base = mean(y)
	g.trees = g.trees[:0]

	preds := make([]float64, len(y))
	for i := range preds {
		preds[i] = g.base
	}

	residuals := make([]float64, len(y))
	for round := 0; round < g.params.Rounds; round++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		for i := range y {
			residuals[i] = y[i] - preds[i]
		}

		rows := sampleIndexes(rng, len(y), g.params.Subsample)
		features := sampleIndexes(rng, numFeatures, g.params.ColSample)

		tree := g.buildTree(X, residuals, rows, features, 0)
		g.trees = append(g.trees, tree)

		for i := range preds {
			preds[i] += g.params.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// Predict returns the ensemble output for one feature row.
func (g *GBTRegressor) Predict(row []float64) float64 {
	out := g.base
	for _, tree := range g.trees {
		out += g.params.LearningRate * tree.predict(row)
	}
	return out
}

// Score returns the coefficient of determination R² on the given data.
func (g *GBTRegressor) Score(X [][]float64, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	m := mean(y)
	var ssRes, ssTot float64
	for i := range y {
		d := y[i] - g.Predict(X[i])
		ssRes += d * d
		t := y[i] - m
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func (t *treeNode) predict(row []float64) float64 {
	node := t
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// buildTree grows a regression tree on the residuals, greedily choosing the split
// with the largest squared-error reduction.
func (g *GBTRegressor) buildTree(X [][]float64, residuals []float64, rows, features []int, depth int) *treeNode {
	if depth >= g.params.MaxDepth || len(rows) < 2*g.params.MinSamplesLeaf {
		return leafNode(residuals, rows)
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	total, totalSq := sums(residuals, rows)
	baseSSE := totalSq - total*total/float64(len(rows))

	order := make([]int, len(rows))
	for _, f := range features {
		copy(order, rows)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftSum, leftSq float64
		for k := 0; k < len(order)-1; k++ {
			r := residuals[order[k]]
			leftSum += r
			leftSq += r * r

			// Only split between distinct feature values.
			if X[order[k]][f] == X[order[k+1]][f] {
				continue
			}
			leftCount := k + 1
			rightCount := len(order) - leftCount
			if leftCount < g.params.MinSamplesLeaf || rightCount < g.params.MinSamplesLeaf {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(leftCount)) +
				(rightSq - rightSum*rightSum/float64(rightCount))
			gain := baseSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leafNode(residuals, rows)
	}

	var leftRows, rightRows []int
	for _, i := range rows {
		if X[i][bestFeature] <= bestThreshold {
			leftRows = append(leftRows, i)
		} else {
			rightRows = append(rightRows, i)
		}
	}
	if len(leftRows) == 0 || len(rightRows) == 0 {
		return leafNode(residuals, rows)
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      g.buildTree(X, residuals, leftRows, features, depth+1),
		right:     g.buildTree(X, residuals, rightRows, features, depth+1),
	}
}

func leafNode(residuals []float64, rows []int) *treeNode {
	var sum float64
	for _, i := range rows {
		sum += residuals[i]
	}
	value := 0.0
	if len(rows) > 0 {
		value = sum / float64(len(rows))
	}
	return &treeNode{leaf: true, value: value}
}

func sums(residuals []float64, rows []int) (total, totalSq float64) {
	for _, i := range rows {
		r := residuals[i]
		total += r
		totalSq += r * r
	}
	return total, totalSq
}

// sampleIndexes draws a sorted sample of ceil(n*fraction) indexes without
// replacement.
func sampleIndexes(rng *rand.Rand, n int, fraction float64) []int {
	count := int(math.Ceil(float64(n) * fraction))
	if count >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(n)[:count]
	sort.Ints(perm)
	return perm
}

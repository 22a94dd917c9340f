package analysis

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans partitions row vectors into K groups by Lloyd iteration from
// k-means++ seeds. Restarts independent initialisations are run from a single
// seeded source and the lowest-inertia result is kept, so results are
// reproducible for a fixed Seed.
type KMeans struct {
	K             int
	Seed          int64
	Restarts      int
	MaxIterations int
	// Tolerance is relative to the mean per-feature variance of the data.
	Tolerance float64
}

// KMeansResult is a fitted partition.
type KMeansResult struct {
	Labels     []int
	Centroids  *mat.Dense
	Inertia    float64
	Iterations int
}

// DefaultKMeans mirrors common library defaults.
func DefaultKMeans(k int) KMeans {
	return KMeans{K: k, Seed: 42, Restarts: 10, MaxIterations: 300, Tolerance: 1e-4}
}

// Fit clusters the rows of x. K is clamped to the number of rows.
func (km KMeans) Fit(x *mat.Dense) (KMeansResult, error) {
	if x == nil {
		return KMeansResult{}, errors.New("kmeans: no data")
	}
	n, _ := x.Dims()
	k := km.K
	if k < 1 {
		return KMeansResult{}, errors.New("kmeans: k must be at least 1")
	}
	if k > n {
		k = n
	}
	restarts := km.Restarts
	if restarts < 1 {
		restarts = 1
	}
	maxIter := km.MaxIterations
	if maxIter < 1 {
		maxIter = 300
	}
	tol := km.Tolerance * meanVariance(x)

	rng := rand.New(rand.NewSource(km.Seed))
	var best KMeansResult
	for r := 0; r < restarts; r++ {
		res := lloyd(x, seedPlusPlus(x, k, rng), maxIter, tol)
		if r == 0 || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func lloyd(x, centroids *mat.Dense, maxIter int, tol float64) KMeansResult {
	k, _ := centroids.Dims()
	var labels []int
	iter := 0
	for iter < maxIter {
		iter++
		next, _ := assign(x, centroids)
		stable := labels != nil && equalLabels(labels, next)
		labels = next
		if stable {
			break
		}
		updated := recompute(x, labels, centroids)
		shift := 0.0
		for c := 0; c < k; c++ {
			shift += sqDist(centroids.RawRowView(c), updated.RawRowView(c))
		}
		centroids = updated
		if shift <= tol {
			break
		}
	}
	labels, inertia := assign(x, centroids)
	return KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia, Iterations: iter}
}

// seedPlusPlus picks k initial centroids with greedy k-means++: each step
// samples 2+ln(k) candidates proportional to squared distance and keeps the
// one that lowers total potential most.
func seedPlusPlus(x *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := x.Dims()
	centroids := mat.NewDense(k, d, nil)
	trials := 2 + int(math.Log(float64(k)))

	first := rng.Intn(n)
	centroids.SetRow(0, x.RawRowView(first))
	closest := make([]float64, n)
	for i := 0; i < n; i++ {
		closest[i] = sqDist(x.RawRowView(i), x.RawRowView(first))
	}

	for c := 1; c < k; c++ {
		total := floats.Sum(closest)
		if total == 0 {
			idx := rng.Intn(n)
			centroids.SetRow(c, x.RawRowView(idx))
			continue
		}

		bestIdx, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			idx := sampleIndex(closest, rng.Float64()*total)
			cand := x.RawRowView(idx)
			next := make([]float64, n)
			for i := 0; i < n; i++ {
				next[i] = math.Min(closest[i], sqDist(x.RawRowView(i), cand))
			}
			if pot := floats.Sum(next); pot < bestPot {
				bestIdx, bestPot, bestClosest = idx, pot, next
			}
		}
		centroids.SetRow(c, x.RawRowView(bestIdx))
		closest = bestClosest
	}
	return centroids
}

func sampleIndex(weights []float64, target float64) int {
	cum := 0.0
	for i, w := range weights {
		cum += w
		if cum >= target && w > 0 {
			return i
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return 0
}

// assign maps each row to its nearest centroid; ties go to the lowest index.
func assign(x, centroids *mat.Dense) ([]int, float64) {
	n, _ := x.Dims()
	k, _ := centroids.Dims()
	labels := make([]int, n)
	inertia := 0.0
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dist := sqDist(row, centroids.RawRowView(c)); dist < bestDist {
				best, bestDist = c, dist
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return labels, inertia
}

// recompute returns the mean of each cluster's members. A cluster that lost
// all members keeps its previous centroid.
func recompute(x *mat.Dense, labels []int, prev *mat.Dense) *mat.Dense {
	k, d := prev.Dims()
	next := mat.NewDense(k, d, nil)
	counts := make([]int, k)
	for i, c := range labels {
		floats.Add(next.RawRowView(c), x.RawRowView(i))
		counts[c]++
	}
	for c := 0; c < k; c++ {
		row := next.RawRowView(c)
		if counts[c] == 0 {
			copy(row, prev.RawRowView(c))
			continue
		}
		floats.Scale(1/float64(counts[c]), row)
	}
	return next
}

func meanVariance(x *mat.Dense) float64 {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return 0
	}
	col := make([]float64, n)
	total := 0.0
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean := floats.Sum(col) / float64(n)
		v := 0.0
		for _, val := range col {
			v += (val - mean) * (val - mean)
		}
		total += v / float64(n)
	}
	return total / float64(d)
}

func sqDist(a, b []float64) float64 {
	dist := floats.Distance(a, b, 2)
	return dist * dist
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

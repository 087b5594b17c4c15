// Package cluster groups feature vectors with k-means.
//
// Features are z-scored internally (population standard deviation; a
// constant feature becomes 0) so that no single unit dominates the distance.
// Seeding is k-means++ driven by a PCG generator: the same input, k and
// Options always produce the same result.
package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// Options control the search. Zero values fall back to the defaults.
type Options struct {
	Seed    uint64
	MaxIter int
	NInit   int
}

const (
	DefaultSeed    = 42
	DefaultMaxIter = 100
	DefaultNInit   = 10
)

func (o Options) withDefaults() Options {
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.NInit <= 0 {
		o.NInit = DefaultNInit
	}
	return o
}

// Result is the best of the NInit runs.
type Result struct {
	NClusters int `json:"n_clusters"`
	// Inertia is measured in standardised units.
	Inertia           float64     `json:"inertia"`
	ClusterSizes      []int       `json:"cluster_sizes"`
	Assignments       []int       `json:"clusters"`
	Centroids         [][]float64 `json:"cluster_centers"`
	CentroidsOriginal [][]float64 `json:"cluster_centers_original"`
	Iterations        int         `json:"iterations"`
	Converged         bool        `json:"converged"`
}

// KMeans partitions samples into k clusters.
func KMeans(samples [][]float64, k int, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if k < 1 {
		return nil, stats.InvalidParameterf("n_clusters must be at least 1 (got %d)", k)
	}
	if len(samples) < k {
		return nil, stats.InvalidParameterf("n_clusters (%d) exceeds the number of samples (%d)", k, len(samples))
	}
	dim := len(samples[0])
	if dim == 0 {
		return nil, stats.InvalidParameterf("samples have no features")
	}
	for i, s := range samples {
		if len(s) != dim {
			return nil, stats.ShapeMismatchf("sample %d has %d features, expected %d", i, len(s), dim)
		}
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, stats.InvalidParameterf("sample %d contains non-finite values", i)
			}
		}
	}

	z, means, sds := standardize(samples)

	var best *run
	for r := 0; r < opts.NInit; r++ {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(r)))
		cur := lloyd(z, seed(z, k, rng), opts.MaxIter)
		if best == nil || cur.inertia < best.inertia {
			best = cur
		}
	}

	res := &Result{
		NClusters:    k,
		Inertia:      best.inertia,
		ClusterSizes: make([]int, k),
		Assignments:  best.assign,
		Centroids:    best.centroids,
		Iterations:   best.iterations,
		Converged:    best.converged,
	}
	for _, c := range best.assign {
		res.ClusterSizes[c]++
	}
	res.CentroidsOriginal = make([][]float64, k)
	for c, centroid := range best.centroids {
		orig := make([]float64, dim)
		for j, v := range centroid {
			orig[j] = v*sds[j] + means[j]
		}
		res.CentroidsOriginal[c] = orig
	}
	return res, nil
}

func standardize(samples [][]float64) (z [][]float64, means, sds []float64) {
	n, dim := len(samples), len(samples[0])
	means = make([]float64, dim)
	sds = make([]float64, dim)
	col := make([]float64, n)
	for j := 0; j < dim; j++ {
		for i, s := range samples {
			col[i] = s[j]
		}
		means[j], sds[j] = stat.PopMeanStdDev(col, nil)
	}

	z = make([][]float64, n)
	for i, s := range samples {
		row := make([]float64, dim)
		for j, v := range s {
			if sds[j] > 0 {
				row[j] = (v - means[j]) / sds[j]
			}
		}
		z[i] = row
	}
	return z, means, sds
}

// seed picks k initial centroids with k-means++: the first uniformly, each
// next one with probability proportional to its squared distance from the
// nearest centroid chosen so far.
func seed(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(d2)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			next = len(points) - 1
			for i, d := range d2 {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		} else {
			// every point coincides with a centroid
			next = rng.IntN(len(points))
		}
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

type run struct {
	centroids  [][]float64
	assign     []int
	inertia    float64
	iterations int
	converged  bool
}

// lloyd alternates assignment and update steps until no sample changes
// cluster or maxIter is reached.
func lloyd(points, centroids [][]float64, maxIter int) *run {
	k, dim := len(centroids), len(points[0])
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}
	r := &run{centroids: centroids, assign: assign}

	for r.iterations < maxIter {
		r.iterations++
		changed := assignAll(points, centroids, assign)
		if !changed && r.iterations > 1 {
			r.converged = true
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				far := farthest(points, centroids, assign)
				centroids[c] = clone(points[far])
				assign[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	if !r.converged {
		assignAll(points, centroids, assign)
	}

	for i, p := range points {
		r.inertia += sqDist(p, centroids[assign[i]])
	}
	return r
}

// assignAll moves every point to its nearest centroid; ties go to the lowest
// index. It reports whether any assignment changed.
func assignAll(points, centroids [][]float64, assign []int) bool {
	changed := false
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestD {
				best, bestD = c, d
			}
		}
		if assign[i] != best {
			assign[i] = best
			changed = true
		}
	}
	return changed
}

func farthest(points, centroids [][]float64, assign []int) int {
	idx, max := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[assign[i]]); d > max {
			idx, max = i, d
		}
	}
	return idx
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 {
	c := make([]float64, len(p))
	copy(c, p)
	return c
}

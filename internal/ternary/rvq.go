package ternary

import (
	"math"
	"math/rand"

	merr "github.com/objones25/mnemo/pkg/errors"
)

// Codebook is the output of residual vector quantization: per-layer
// per-coordinate assignment codes plus the per-layer centroid tables used to
// reconstruct. Every centroid entry is a dimension-length vector so that
// reconstruction is a plain indexed sum across layers.
type Codebook struct {
	NumLayers    int           `json:"num_layers"`
	CodebookSize int           `json:"codebook_size"`
	Assignments  [][]uint8     `json:"quantized_indices"`
	Centroids    [][][]float32 `json:"codebooks"`
}

// Dimension reports the original vector dimension, inferred from the first
// centroid entry. Zero when the codebook is empty.
func (c *Codebook) Dimension() int {
	if len(c.Centroids) == 0 || len(c.Centroids[0]) == 0 {
		return 0
	}
	return len(c.Centroids[0][0])
}

// SizeBytes estimates the footprint at declared capacity: the full centroid
// tables plus one assignment byte per coordinate per layer.
func (c *Codebook) SizeBytes() int {
	dim := c.Dimension()
	if dim == 0 {
		return 0
	}
	return c.NumLayers*c.CodebookSize*dim*4 + c.NumLayers*dim
}

const (
	rvqMaxIterations  = 10
	rvqConvergenceEps = 1e-6
	rvqSeed           = 7919
)

// RVQQuantizer compresses a dense vector through successive layers: each
// layer fits a small codebook to the current residual, assigns every
// coordinate to its nearest centroid, and subtracts the reconstruction.
type RVQQuantizer struct {
	numLayers    int
	codebookSize int
}

// NewRVQQuantizer validates layer count and codebook size. Codes are stored
// as uint8, so the codebook size is capped at 256.
func NewRVQQuantizer(numLayers, codebookSize int) (*RVQQuantizer, error) {
	if numLayers < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "rvq layers must be at least 1, got %d", numLayers)
	}
	if codebookSize < 1 || codebookSize > 256 {
		return nil, merr.Errorf(merr.CodeConfigInvalid,
			"rvq codebook size must be in [1, 256], got %d", codebookSize)
	}
	return &RVQQuantizer{numLayers: numLayers, codebookSize: codebookSize}, nil
}

// Quantize runs the layered residual quantization. A fixed seed keeps the
// centroid fit deterministic for identical input and config.
func (q *RVQQuantizer) Quantize(dense []float32) (*Codebook, error) {
	if len(dense) == 0 {
		return nil, merr.New(merr.CodePayloadInvalid, "cannot quantize an empty vector")
	}
	dimension := len(dense)

	residual := make([]float32, dimension)
	copy(residual, dense)

	rng := rand.New(rand.NewSource(rvqSeed))
	assignments := make([][]uint8, q.numLayers)
	centroids := make([][][]float32, q.numLayers)

	for layer := 0; layer < q.numLayers; layer++ {
		scalars := fitScalarCentroids(residual, q.codebookSize, rng)

		codes := make([]uint8, dimension)
		for i, val := range residual {
			codes[i] = uint8(nearestScalar(val, scalars))
		}

		// Broadcast each scalar centroid across the dimension so every
		// codebook entry is a dimension-length reconstruction vector.
		table := make([][]float32, len(scalars))
		for j, c := range scalars {
			entry := make([]float32, dimension)
			for d := range entry {
				entry[d] = c
			}
			table[j] = entry
		}

		assignments[layer] = codes
		centroids[layer] = table

		for i := range residual {
			residual[i] -= scalars[codes[i]]
		}
	}

	return &Codebook{
		NumLayers:    q.numLayers,
		CodebookSize: q.codebookSize,
		Assignments:  assignments,
		Centroids:    centroids,
	}, nil
}

// Dequantize reconstructs by summing, for each coordinate, the assigned
// centroid contribution of every layer. Bounds are checked because codebooks
// arrive off the wire.
func (q *RVQQuantizer) Dequantize(cb *Codebook) []float32 {
	dimension := cb.Dimension()
	if dimension == 0 {
		return nil
	}

	result := make([]float32, dimension)
	for layer := 0; layer < cb.NumLayers && layer < len(cb.Assignments); layer++ {
		if layer >= len(cb.Centroids) {
			break
		}
		table := cb.Centroids[layer]
		for dim, code := range cb.Assignments[layer] {
			if dim >= dimension || int(code) >= len(table) {
				continue
			}
			entry := table[code]
			if dim < len(entry) {
				result[dim] += entry[dim]
			}
		}
	}
	return result
}

// fitScalarCentroids clusters the residual's coordinate values with k-means:
// k-means++ seeding followed by Lloyd iterations with mean updates. Returns
// at most k centroids (fewer when there are fewer coordinates than k).
func fitScalarCentroids(values []float32, k int, rng *rand.Rand) []float32 {
	if k > len(values) {
		k = len(values)
	}

	centroids := make([]float32, k)
	centroids[0] = values[rng.Intn(len(values))]

	distances := make([]float64, len(values))
	for i := 1; i < k; i++ {
		var totalDist float64
		for j, val := range values {
			minDist := math.MaxFloat64
			for c := 0; c < i; c++ {
				diff := float64(val - centroids[c])
				if d := diff * diff; d < minDist {
					minDist = d
				}
			}
			distances[j] = minDist
			totalDist += minDist
		}

		// Choose the next centroid with probability proportional to
		// squared distance from the nearest existing centroid.
		target := rng.Float64() * totalDist
		var sum float64
		var chosen int
		for j, dist := range distances {
			sum += dist
			if sum >= target {
				chosen = j
				break
			}
		}
		centroids[i] = values[chosen]
	}

	assignments := make([]int, len(values))
	for i := range assignments {
		assignments[i] = -1
	}
	newAssignments := make([]int, len(values))

	for iteration := 0; iteration < rvqMaxIterations; iteration++ {
		for i, val := range values {
			newAssignments[i] = nearestScalar(val, centroids)
		}

		changed := false
		for i := range assignments {
			if assignments[i] != newAssignments[i] {
				changed = true
				assignments[i] = newAssignments[i]
			}
		}
		if !changed {
			break
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, cluster := range assignments {
			sums[cluster] += float64(values[i])
			counts[cluster]++
		}

		var maxMove float64
		for j := range centroids {
			if counts[j] == 0 {
				continue
			}
			mean := float32(sums[j] / float64(counts[j]))
			if move := math.Abs(float64(mean - centroids[j])); move > maxMove {
				maxMove = move
			}
			centroids[j] = mean
		}
		if maxMove < rvqConvergenceEps {
			break
		}
	}

	return centroids
}

func nearestScalar(val float32, centroids []float32) int {
	minDist := math.MaxFloat64
	best := 0
	for j, c := range centroids {
		if d := math.Abs(float64(val - c)); d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

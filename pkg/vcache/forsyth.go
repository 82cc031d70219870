// Package vcache reorders indexed triangle lists for better GPU post-transform
// vertex cache reuse, using Tom Forsyth's linear-speed scoring heuristic.
package vcache

import "github.com/chewxy/math32"

// DefaultCacheSize is the simulated cache size used when none is given.
const DefaultCacheSize = 32

// MaxCacheSize bounds the simulated cache.
const MaxCacheSize = 64

// Scoring parameters.
const (
	cacheDecayPower   = 1.5
	lastTriScore      = 0.75
	valenceBoostScale = 2.0
	valenceBoostPower = 0.5
)

type vertexData struct {
	cachePos  int   // position in the simulated LRU cache, -1 if absent
	score     float32
	remaining int   // triangles not yet emitted that use this vertex
	tris      []int // triangles using this vertex; emitted ones are swapped out
}

// scoreTable caches vertex scores by cache position and remaining valence.
type scoreTable struct {
	cacheSize int
	position  []float32
	valence   []float32
}

const maxValenceScore = 32

func newScoreTable(cacheSize int) *scoreTable {
	st := &scoreTable{
		cacheSize: cacheSize,
		position:  make([]float32, cacheSize),
		valence:   make([]float32, maxValenceScore),
	}
	for i := 0; i < cacheSize; i++ {
		if i < 3 {
			// The last triangle's vertices get a fixed score so the
			// heuristic does not favor strips over fans.
			st.position[i] = lastTriScore
			continue
		}
		scaler := float32(1) / float32(cacheSize-3)
		st.position[i] = math32.Pow(1-float32(i-3)*scaler, cacheDecayPower)
	}
	for i := 1; i < maxValenceScore; i++ {
		st.valence[i] = valenceBoostScale * math32.Pow(float32(i), -valenceBoostPower)
	}
	return st
}

func (st *scoreTable) score(cachePos, remaining int) float32 {
	if remaining == 0 {
		return -1
	}
	var s float32
	if cachePos >= 0 && cachePos < st.cacheSize {
		s = st.position[cachePos]
	}
	if remaining < maxValenceScore {
		s += st.valence[remaining]
	} else {
		s += valenceBoostScale * math32.Pow(float32(remaining), -valenceBoostPower)
	}
	return s
}

// Optimize returns a reordered copy of indices. Triangles keep their corner
// order; only the order of whole triangles changes. The result is
// deterministic for identical input.
func Optimize(indices []uint16, numVertices, cacheSize int) []uint16 {
	out := make([]uint16, len(indices))
	copy(out, indices)
	OptimizeInPlace(out, numVertices, cacheSize)
	return out
}

// OptimizeInPlace reorders the triangles of indices in place.
func OptimizeInPlace(indices []uint16, numVertices, cacheSize int) {
	numTris := len(indices) / 3
	if numTris < 2 {
		return
	}
	if cacheSize <= 3 {
		cacheSize = DefaultCacheSize
	} else if cacheSize > MaxCacheSize {
		cacheSize = MaxCacheSize
	}
	for _, idx := range indices[:numTris*3] {
		if int(idx) >= numVertices {
			numVertices = int(idx) + 1
		}
	}

	st := newScoreTable(cacheSize)
	verts := make([]vertexData, numVertices)

	for _, idx := range indices[:numTris*3] {
		verts[idx].remaining++
	}
	for v := range verts {
		verts[v].cachePos = -1
		verts[v].tris = make([]int, 0, verts[v].remaining)
	}
	for t := 0; t < numTris; t++ {
		for c := 0; c < 3; c++ {
			v := indices[t*3+c]
			verts[v].tris = append(verts[v].tris, t)
		}
	}
	for v := range verts {
		verts[v].score = st.score(-1, verts[v].remaining)
	}

	triScore := make([]float32, numTris)
	triAdded := make([]bool, numTris)
	for t := 0; t < numTris; t++ {
		for c := 0; c < 3; c++ {
			triScore[t] += verts[indices[t*3+c]].score
		}
	}

	// The LRU holds up to cacheSize entries plus room for one incoming triangle.
	cache := make([]int, 0, cacheSize+3)
	next := make([]int, 0, cacheSize+3)
	order := make([]int, 0, numTris)

	bestTri := -1
	scanFrom := 0

	for len(order) < numTris {
		if bestTri < 0 {
			// Nothing in the cache neighbourhood; take the best remaining triangle.
			var bestScore float32 = -1
			for t := scanFrom; t < numTris; t++ {
				if triAdded[t] {
					if t == scanFrom {
						scanFrom++
					}
					continue
				}
				if triScore[t] > bestScore {
					bestScore = triScore[t]
					bestTri = t
				}
			}
		}

		t := bestTri
		triAdded[t] = true
		order = append(order, t)

		// Rebuild the LRU: this triangle's vertices first, then the old entries.
		next = next[:0]
		for c := 0; c < 3; c++ {
			v := int(indices[t*3+c])
			if !containsInt(next, v) {
				next = append(next, v)
			}
			vd := &verts[v]
			vd.remaining--
			for i, ot := range vd.tris {
				if ot == t {
					last := len(vd.tris) - 1
					vd.tris[i] = vd.tris[last]
					vd.tris = vd.tris[:last]
					break
				}
			}
		}
		for _, v := range cache {
			if !containsInt(next, v) {
				next = append(next, v)
			}
		}
		cache, next = next, cache

		// Rescore everything that was or is in the cache.
		for pos, v := range cache {
			if pos >= cacheSize {
				verts[v].cachePos = -1
			} else {
				verts[v].cachePos = pos
			}
			newScore := st.score(verts[v].cachePos, verts[v].remaining)
			delta := newScore - verts[v].score
			verts[v].score = newScore
			if delta != 0 {
				for _, ot := range verts[v].tris {
					triScore[ot] += delta
				}
			}
		}
		if len(cache) > cacheSize {
			cache = cache[:cacheSize]
		}

		// Pick the best triangle touching the cache.
		bestTri = -1
		var bestScore float32 = -1
		for _, v := range cache {
			for _, ot := range verts[v].tris {
				if triScore[ot] > bestScore || (triScore[ot] == bestScore && ot < bestTri) {
					bestScore = triScore[ot]
					bestTri = ot
				}
			}
		}
	}

	reordered := make([]uint16, numTris*3)
	for i, t := range order {
		copy(reordered[i*3:i*3+3], indices[t*3:t*3+3])
	}
	copy(indices, reordered)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// ACMR returns the average cache miss ratio (misses per triangle) of indices
// replayed through a FIFO cache of the given size.
func ACMR(indices []uint16, cacheSize int) float32 {
	numTris := len(indices) / 3
	if numTris == 0 || cacheSize <= 0 {
		return 0
	}

	fifo := make([]int, cacheSize)
	for i := range fifo {
		fifo[i] = -1
	}
	head := 0
	misses := 0
	for _, idx := range indices[:numTris*3] {
		if containsInt(fifo, int(idx)) {
			continue
		}
		misses++
		fifo[head] = int(idx)
		head = (head + 1) % cacheSize
	}
	return float32(misses) / float32(numTris)
}

package index

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// hnswNode is one point in the graph: its vector and, per layer, the set
// of neighbor ids.
type hnswNode struct {
	id        uint32
	vector    []float32
	neighbors [][]uint32 // neighbors[level] = neighbor ids at that level
}

// VectorIndex is a from-scratch HNSW (Hierarchical Navigable Small World)
// approximate nearest-neighbor graph, following Malkov & Yashunin. No ANN
// library is present anywhere in the retrieval pack, so this graph is
// built directly against the standard library (see DESIGN.md).
type VectorIndex struct {
	mu sync.RWMutex

	dist       DistanceFunc
	m          int // max neighbors per node per layer
	efConstruct int
	levelMult  float64

	nodes     map[uint32]*hnswNode
	entryID   uint32
	entrySet  bool
	maxLevel  int
	rng       *rand.Rand
}

// DistanceFunc scores two vectors; lower is closer.
type DistanceFunc func(a, b []float32) float32

// CosineDistance returns 1 - cosine similarity.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// InnerProductDistance returns the negative dot product (so that "lower is
// closer" still holds for a maximized inner product).
func InnerProductDistance(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(-dot)
}

// NewVectorIndex builds an empty HNSW graph. m bounds neighbors per node
// per layer (16 is Typesense's own default); efConstruction bounds the
// candidate list size during insertion.
func NewVectorIndex(dist DistanceFunc, m, efConstruction int) *VectorIndex {
	if m <= 0 {
		m = 16
	}
	if efConstruction <= 0 {
		efConstruction = 100
	}
	return &VectorIndex{
		dist:        dist,
		m:           m,
		efConstruct: efConstruction,
		levelMult:   1 / math.Log(float64(m)),
		nodes:       make(map[uint32]*hnswNode),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (idx *VectorIndex) randomLevel() int {
	level := int(math.Floor(-math.Log(idx.rng.Float64()) * idx.levelMult))
	return level
}

// Insert adds a vector under seqID, rebuilding graph connections at every
// level up to the node's randomly chosen max level.
func (idx *VectorIndex) Insert(seqID uint32, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	level := idx.randomLevel()
	node := &hnswNode{id: seqID, vector: vector, neighbors: make([][]uint32, level+1)}
	idx.nodes[seqID] = node

	if !idx.entrySet {
		idx.entryID = seqID
		idx.entrySet = true
		idx.maxLevel = level
		return
	}

	for l := 0; l <= level && l <= idx.maxLevel; l++ {
		candidates := idx.searchLayer(vector, idx.entryID, idx.efConstruct, l)
		neighbors := idx.selectNeighbors(candidates, idx.m)
		node.neighbors[l] = neighbors
		for _, n := range neighbors {
			other := idx.nodes[n]
			if other == nil || len(other.neighbors) <= l {
				continue
			}
			other.neighbors[l] = idx.selectNeighbors(append(other.neighbors[l], seqID), idx.m)
		}
	}

	if level > idx.maxLevel {
		idx.maxLevel = level
		idx.entryID = seqID
	}
}

// Delete removes seqID from the graph. Remaining edges referencing it are
// pruned lazily by the next Rebuild (run periodically by the collection's
// VectorLoop) rather than eagerly here,
// matching the periodic-rebuild strategy spec §4.3 describes.
func (idx *VectorIndex) Delete(seqID uint32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.nodes, seqID)
}

// Search returns the k nearest neighbors to query.
func (idx *VectorIndex) Search(query []float32, k int) []ScoredID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.entrySet {
		return nil
	}
	ef := k
	if idx.efConstruct > ef {
		ef = idx.efConstruct
	}
	candidates := idx.searchLayer(query, idx.entryID, ef, 0)
	scored := make([]ScoredID, 0, len(candidates))
	for _, id := range candidates {
		n := idx.nodes[id]
		if n == nil {
			continue
		}
		scored = append(scored, ScoredID{ID: id, Distance: idx.dist(query, n.vector)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// ScoredID pairs a document id with its distance from a query vector.
type ScoredID struct {
	ID       uint32
	Distance float32
}

// Vector returns the stored vector for seqID, used to re-embed a document
// into a rebuilt graph or to report _vector_distance against the hit's
// own field value.
func (idx *VectorIndex) Vector(seqID uint32) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, ok := idx.nodes[seqID]
	if !ok {
		return nil, false
	}
	return n.vector, true
}

// searchLayer performs a greedy best-first search starting from
// entryID, returning up to ef candidate ids sorted by distance.
func (idx *VectorIndex) searchLayer(query []float32, entryID uint32, ef int, level int) []uint32 {
	visited := map[uint32]bool{entryID: true}
	entryNode := idx.nodes[entryID]
	if entryNode == nil {
		return nil
	}
	candidates := []ScoredID{{ID: entryID, Distance: idx.dist(query, entryNode.vector)}}
	result := append([]ScoredID{}, candidates...)

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
		cur := candidates[0]
		candidates = candidates[1:]

		worst := result[len(result)-1].Distance
		if len(result) >= ef && cur.Distance > worst {
			break
		}

		node := idx.nodes[cur.ID]
		if node == nil || level >= len(node.neighbors) {
			continue
		}
		for _, n := range node.neighbors[level] {
			if visited[n] {
				continue
			}
			visited[n] = true
			other := idx.nodes[n]
			if other == nil {
				continue
			}
			d := idx.dist(query, other.vector)
			candidates = append(candidates, ScoredID{ID: n, Distance: d})
			result = append(result, ScoredID{ID: n, Distance: d})
			sort.Slice(result, func(i, j int) bool { return result[i].Distance < result[j].Distance })
			if len(result) > ef {
				result = result[:ef]
			}
		}
	}

	ids := make([]uint32, len(result))
	for i, r := range result {
		ids[i] = r.ID
	}
	return ids
}

func (idx *VectorIndex) selectNeighbors(candidates []uint32, m int) []uint32 {
	seen := make(map[uint32]bool, len(candidates))
	unique := candidates[:0:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	if len(unique) > m {
		unique = unique[:m]
	}
	return unique
}

// Size returns the number of live vectors currently indexed.
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Rebuild replaces the graph's internal structure by reinserting every
// live vector into a fresh graph, discarding stale edges left by
// Delete. Returns the rebuilt index; callers atomically swap it in.
func (idx *VectorIndex) Rebuild() *VectorIndex {
	idx.mu.RLock()
	snapshot := make([]*hnswNode, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		snapshot = append(snapshot, n)
	}
	idx.mu.RUnlock()

	fresh := NewVectorIndex(idx.dist, idx.m, idx.efConstruct)
	for _, n := range snapshot {
		fresh.Insert(n.id, n.vector)
	}
	return fresh
}

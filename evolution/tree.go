package evolution

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/types"
)

// Node is one agent instance registered in the evolution forest.
type Node struct {
	// ID is the globally unique node identifier.
	ID string `json:"id"`
	// ParentID names the spawning parent; empty for roots.
	ParentID string `json:"parent_id,omitempty"`
	// Generation is the depth in the forest; roots are generation 0.
	Generation int `json:"generation"`
	// Score is the node's performance at registration time.
	Score float64 `json:"score"`
	// Metadata carries registration details such as per-stage scores.
	Metadata map[string]string `json:"metadata,omitempty"`
	// CreatedAt is the registration timestamp.
	CreatedAt time.Time `json:"created_at"`

	// seq is the arrival order; it breaks performance-ranking ties in
	// favor of the earlier node.
	seq int
}

// Edge is one parent to child spawn relationship.
type Edge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Stats aggregates the forest. All fields are zero for an empty tree.
type Stats struct {
	TotalNodes         int     `json:"total_nodes"`
	TotalGenerations   int     `json:"total_generations"`
	AveragePerformance float64 `json:"average_performance"`
	BestPerformance    float64 `json:"best_performance"`
}

// Snapshot is a point-in-time copy of the whole forest, nodes and edges
// in registration order.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Stats Stats  `json:"stats"`
}

// Tree is the evolution forest: every agent instance ever registered,
// its generation, its score and its parent edge. The tree is shared
// across concurrently running pipelines, so every mutation validates
// fully before committing under a single write lock; readers always
// observe a node together with its parent edge.
type Tree struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	children map[string][]string
	order    []string

	logger *zap.Logger
	now    func() time.Time
}

// NewTree creates an empty forest.
func NewTree(logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		logger:   logger.With(zap.String("component", "evolution")),
		now:      time.Now,
	}
}

// WithClock overrides the registration timestamp source. Test hook.
func (t *Tree) WithClock(now func() time.Time) *Tree {
	if now != nil {
		t.now = now
	}
	return t
}

// AddNode registers a node. The whole call validates before any state
// changes, so a failed AddNode leaves the tree exactly as it was:
//
//   - DUPLICATE_NODE when the id is already present
//   - MISSING_PARENT when parentID names an unknown node
//   - GENERATION_MISMATCH when the generation does not fit its place
//     in the forest (roots must be generation 0, children exactly one
//     deeper than their parent)
func (t *Tree) AddNode(id string, generation int, score float64, parentID string, metadata map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.nodes[id]; exists {
		return types.NewError(types.ErrDuplicateNode, fmt.Sprintf("node %q already exists", id))
	}
	if parentID == "" {
		if generation != 0 {
			return types.NewError(types.ErrGenerationMismatch,
				fmt.Sprintf("root node %q must be generation 0, got %d", id, generation))
		}
	} else {
		parent, ok := t.nodes[parentID]
		if !ok {
			return types.NewError(types.ErrMissingParent,
				fmt.Sprintf("parent %q of node %q not found", parentID, id))
		}
		if generation != parent.Generation+1 {
			return types.NewError(types.ErrGenerationMismatch,
				fmt.Sprintf("node %q generation %d does not follow parent generation %d",
					id, generation, parent.Generation))
		}
	}

	n := &Node{
		ID:         id,
		ParentID:   parentID,
		Generation: generation,
		Score:      score,
		Metadata:   copyMetadata(metadata),
		CreatedAt:  t.now(),
		seq:        len(t.order),
	}
	t.nodes[id] = n
	t.order = append(t.order, id)
	if parentID != "" {
		t.children[parentID] = append(t.children[parentID], id)
	}

	t.logger.Debug("node registered",
		zap.String("node_id", id),
		zap.String("parent_id", parentID),
		zap.Int("generation", generation),
		zap.Float64("score", score))
	return nil
}

// Node returns a copy of the node, or NODE_NOT_FOUND.
func (t *Tree) Node(id string) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Node{}, types.NewError(types.ErrNodeNotFound, fmt.Sprintf("node %q not found", id))
	}
	return n.copy(), nil
}

// Has reports whether a node id is registered.
func (t *Tree) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nodes[id]
	return ok
}

// Children returns the ids spawned from a node, in spawn order.
func (t *Tree) Children(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kids := t.children[id]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Lineage returns the ancestry of a node ordered root first, ending at
// the node itself. Its length is always the node's generation + 1.
func (t *Tree) Lineage(id string) ([]Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil, types.NewError(types.ErrNodeNotFound, fmt.Sprintf("node %q not found", id))
	}

	chain := make([]Node, 0, n.Generation+1)
	for cur := n; cur != nil; {
		chain = append(chain, cur.copy())
		if cur.ParentID == "" {
			break
		}
		cur = t.nodes[cur.ParentID]
	}
	// Walked child to root; flip to root first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Generation returns the sorted ids of every node at depth n.
func (t *Tree) Generation(n int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for id, node := range t.nodes {
		if node.Generation == n {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TopPerformers returns up to n nodes ranked by score descending;
// equal scores rank the earlier-registered node first.
func (t *Tree) TopPerformers(n int) []Node {
	if n <= 0 {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	ranked := make([]Node, 0, len(t.nodes))
	for _, node := range t.nodes {
		ranked = append(ranked, node.copy())
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].seq < ranked[j].seq
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Stats aggregates the forest; TotalGenerations counts distinct
// generation depths present.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statsLocked()
}

func (t *Tree) statsLocked() Stats {
	s := Stats{TotalNodes: len(t.nodes)}
	if s.TotalNodes == 0 {
		return s
	}
	gens := make(map[int]struct{})
	var sum float64
	first := true
	for _, n := range t.nodes {
		gens[n.Generation] = struct{}{}
		sum += n.Score
		if first || n.Score > s.BestPerformance {
			s.BestPerformance = n.Score
			first = false
		}
	}
	s.TotalGenerations = len(gens)
	s.AveragePerformance = sum / float64(s.TotalNodes)
	return s
}

// Snapshot copies the whole forest under one read lock, so the nodes
// and edges it returns are mutually consistent.
func (t *Tree) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(t.order)),
		Edges: make([]Edge, 0, len(t.order)),
		Stats: t.statsLocked(),
	}
	for _, id := range t.order {
		n := t.nodes[id]
		snap.Nodes = append(snap.Nodes, n.copy())
		if n.ParentID != "" {
			snap.Edges = append(snap.Edges, Edge{Parent: n.ParentID, Child: n.ID})
		}
	}
	return snap
}

// ImprovementRate returns the average score gain per generation along
// the node's lineage: (node score - root score) / generation. Roots
// report 0.
func (t *Tree) ImprovementRate(id string) (float64, error) {
	lineage, err := t.Lineage(id)
	if err != nil {
		return 0, err
	}
	last := lineage[len(lineage)-1]
	if last.Generation == 0 {
		return 0, nil
	}
	return (last.Score - lineage[0].Score) / float64(last.Generation), nil
}

func (n *Node) copy() Node {
	out := *n
	out.Metadata = copyMetadata(n.Metadata)
	return out
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

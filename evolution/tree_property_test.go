package evolution

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/agentfoundry/types"
)

// Model-based check: a random mix of valid and invalid registrations
// must leave the tree exactly matching a plain-map model, and every
// query invariant must hold on the result.
func TestProperty_TreeMatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree := NewTree(nil)

		type modelNode struct {
			parent string
			gen    int
			score  float64
		}
		model := make(map[string]modelNode)
		var order []string

		numOps := rapid.IntRange(1, 50).Draw(rt, "numOps")
		for i := 0; i < numOps; i++ {
			op := rapid.IntRange(0, 3).Draw(rt, fmt.Sprintf("op_%d", i))
			switch {
			case op == 0 || len(order) == 0:
				// Register a fresh root.
				id := fmt.Sprintf("root_%d", i)
				score := rapid.Float64Range(0, 1).Draw(rt, fmt.Sprintf("score_%d", i))
				require.NoError(rt, tree.AddNode(id, 0, score, "", nil))
				model[id] = modelNode{gen: 0, score: score}
				order = append(order, id)

			case op == 1:
				// Register a child of a random existing node.
				parent := rapid.SampledFrom(order).Draw(rt, fmt.Sprintf("parent_%d", i))
				id := fmt.Sprintf("%s_c%d", parent, i)
				gen := model[parent].gen + 1
				score := rapid.Float64Range(0, 1).Draw(rt, fmt.Sprintf("score_%d", i))
				require.NoError(rt, tree.AddNode(id, gen, score, parent, nil))
				model[id] = modelNode{parent: parent, gen: gen, score: score}
				order = append(order, id)

			case op == 2:
				// Duplicate registration must fail and change nothing.
				id := rapid.SampledFrom(order).Draw(rt, fmt.Sprintf("dup_%d", i))
				err := tree.AddNode(id, 0, 0.5, "", nil)
				require.Error(rt, err)
				assert.Equal(rt, types.ErrDuplicateNode, types.GetErrorCode(err))

			default:
				// Unknown parent must fail and change nothing.
				err := tree.AddNode(fmt.Sprintf("orphan_%d", i), 1, 0.5, "no_such_parent", nil)
				require.Error(rt, err)
				assert.Equal(rt, types.ErrMissingParent, types.GetErrorCode(err))
			}
		}

		// Node-for-node agreement with the model.
		stats := tree.Stats()
		require.Equal(rt, len(model), stats.TotalNodes)
		for id, m := range model {
			n, err := tree.Node(id)
			require.NoError(rt, err)
			assert.Equal(rt, m.parent, n.ParentID)
			assert.Equal(rt, m.gen, n.Generation)
			assert.InDelta(rt, m.score, n.Score, 1e-9)

			lineage, err := tree.Lineage(id)
			require.NoError(rt, err)
			require.Len(rt, lineage, m.gen+1)
			assert.Empty(rt, lineage[0].ParentID, "lineage starts at a root")
			assert.Equal(rt, id, lineage[len(lineage)-1].ID)
			for j := 1; j < len(lineage); j++ {
				assert.Equal(rt, lineage[j-1].ID, lineage[j].ParentID)
				assert.Equal(rt, lineage[j-1].Generation+1, lineage[j].Generation)
			}
		}

		// Generation slices partition the node set.
		genCounts := make(map[int]int)
		for _, m := range model {
			genCounts[m.gen]++
		}
		total := 0
		for g, want := range genCounts {
			got := tree.Generation(g)
			assert.Len(rt, got, want)
			assert.True(rt, sort.StringsAreSorted(got))
			total += len(got)
		}
		assert.Equal(rt, len(model), total)
		assert.Equal(rt, len(genCounts), stats.TotalGenerations)

		// Ranking is sorted descending and capped at the node count.
		top := tree.TopPerformers(len(model))
		require.Len(rt, top, len(model))
		for j := 1; j < len(top); j++ {
			assert.GreaterOrEqual(rt, top[j-1].Score, top[j].Score)
		}

		// Every non-root node appears with exactly one edge.
		snap := tree.Snapshot()
		roots := 0
		for _, m := range model {
			if m.parent == "" {
				roots++
			}
		}
		assert.Len(rt, snap.Edges, len(model)-roots)
	})
}

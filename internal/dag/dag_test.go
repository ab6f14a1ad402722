package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.NotNil(t, nodeA.deps)
	assert.NotNil(t, nodeA.dependents)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Len(t, g.nodes, 2)
	_, ok = g.nodes["b"]
	assert.True(t, ok)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		nodeA := g.nodes["a"]
		nodeB := g.nodes["b"]

		assert.Contains(t, nodeA.dependents, "b")
		assert.Equal(t, nodeB, nodeA.dependents["b"])
		assert.Contains(t, nodeB.deps, "a")
		assert.Equal(t, nodeA, nodeB.deps["a"])
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")
	})
}

func TestDependenciesInInsertionOrder(t *testing.T) {
	g := New()
	for _, id := range []string{"c", "a", "b", "d"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	require.NoError(t, g.AddEdge("a", "d"))

	deps, err := g.Dependencies("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, deps)

	dependents, err := g.Dependents("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, dependents)

	_, err = g.Dependencies("zzz")
	assert.ErrorContains(t, err, "node not found")
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		order, err := New().TopologicalOrder()
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("independent nodes keep insertion order", func(t *testing.T) {
		g := New()
		g.AddNode("b")
		g.AddNode("a")
		g.AddNode("c")
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, order)
	})

	t.Run("dependencies come first", func(t *testing.T) {
		g := New()
		for _, id := range []string{"report", "fetch", "parse", "audit"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("fetch", "parse"))
		require.NoError(t, g.AddEdge("parse", "report"))
		require.NoError(t, g.AddEdge("fetch", "report")) // Transitive edge
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"fetch", "parse", "report", "audit"}, order, "ready nodes are taken in insertion order")
	})
}

func TestTopologicalOrder_Cycles(t *testing.T) {
	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		_, err := g.TopologicalOrder()
		assert.NoError(t, err)
	})

	t.Run("longer cycle is detected", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "d"))
		require.NoError(t, g.AddEdge("d", "a")) // Cycle back to the start
		_, err := g.TopologicalOrder()
		assert.ErrorContains(t, err, "cycle detected")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y")) // Cycle

		var cycleErr *CycleError
		_, err := g.TopologicalOrder()
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"y", "z"}, cycleErr.Nodes)
	})
}

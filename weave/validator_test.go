package weave_test

import (
	"testing"

	"github.com/brunokim/tapestry-weave/weave"
	"github.com/stretchr/testify/require"
)

func TestTreeWeaveVerifyPassesOnWellFormedWeave(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	child := weave.NewID()
	require.True(t, w.AddNode(leaf(root, weave.Id{}, false, "a")))
	n := leaf(child, root, true, "b")
	n.Bookmarked = true
	require.True(t, w.AddNode(n))
	require.True(t, w.SetBookmarkedStatus(child, true))

	require.NoError(t, w.Verify())
}

func TestTreeWeaveVerifyAfterOperationsStillPasses(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	require.True(t, w.AddNode(leaf(root, weave.Id{}, false, "hello")))
	_, ok := w.SplitNode(root, 2, weave.NewID())
	require.True(t, ok)
	require.NoError(t, w.Verify())
}

func TestDagWeaveVerifyPassesOnWellFormedWeave(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	a, b, c := weave.NewID(), weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(a, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(b, nil, "b")))
	require.True(t, w.AddNode(dagLeaf(c, []weave.Id{a, b}, "c")))
	require.NoError(t, w.Verify())
}

func TestDagWeaveVerifyPassesAfterParentDeactivationCascades(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	root := weave.NewID()
	child := weave.NewID()
	require.True(t, w.AddNode(dagLeaf(root, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(child, []weave.Id{root}, "b")))

	// Activate the child (which activates its root too), then deactivate
	// its only parent: the deactivation cascades to the child, so no active
	// node is left without an active parent and Verify still passes.
	require.True(t, w.SetActiveStatusInPlace(child, true))
	require.True(t, w.SetActiveStatusInPlace(root, false))
	require.NoError(t, w.Verify())
	require.False(t, w.ContainsActive(child))
}

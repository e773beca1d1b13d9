package weave_test

import (
	"testing"

	"github.com/brunokim/tapestry-weave/weave"
	"github.com/stretchr/testify/require"
)

func dagLeaf(id weave.Id, parents []weave.Id, bytes string) weave.DagNode[weave.NodeContent] {
	return weave.DagNode[weave.NodeContent]{
		Id:       id,
		Parents:  parents,
		Contents: weave.NodeContent{Content: weave.Snippet([]byte(bytes)), Metadata: weave.NewOrderedStringMap()},
	}
}

func TestDagWeaveAddNodeRejectsMissingParent(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	require.False(t, w.AddNode(dagLeaf(weave.NewID(), []weave.Id{weave.NewID()}, "a")))
}

func TestDagWeaveAddNodeActivatesAlongNewChain(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	root := weave.NewID()
	child := weave.NewID()
	require.True(t, w.AddNode(dagLeaf(root, nil, "a")))
	n := dagLeaf(child, []weave.Id{root}, "b")
	n.Active = true
	require.True(t, w.AddNode(n))

	require.True(t, w.ContainsActive(root))
	require.True(t, w.ContainsActive(child))
	require.Equal(t, []weave.Id{child, root}, w.ActiveThread())
}

func TestDagWeaveAddNodeAboveExistingRootForcesActive(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	oldRoot := weave.NewID()
	n := dagLeaf(oldRoot, nil, "a")
	n.Active = true
	require.True(t, w.AddNode(n))

	newRoot := weave.NewID()
	above := weave.DagNode[weave.NodeContent]{
		Id:       newRoot,
		Children: []weave.Id{oldRoot},
		Contents: weave.NodeContent{Content: weave.Snippet([]byte("above")), Metadata: weave.NewOrderedStringMap()},
	}
	require.True(t, w.AddNode(above))

	require.Equal(t, []weave.Id{newRoot}, w.Roots())
	require.True(t, w.ContainsActive(newRoot))
	require.True(t, w.ContainsActive(oldRoot))
}

func TestDagWeaveSetActiveStatusDeactivatesSibling(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	root := weave.NewID()
	a, b := weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(root, nil, "x")))
	na := dagLeaf(a, []weave.Id{root}, "a")
	na.Active = true
	require.True(t, w.AddNode(na))
	require.True(t, w.AddNode(dagLeaf(b, []weave.Id{root}, "b")))

	require.True(t, w.SetActiveStatusInPlace(b, true))
	require.True(t, w.ContainsActive(b))
	require.False(t, w.ContainsActive(a))
}

func TestDagWeaveRemoveNodePartialCascade(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	a, b, c := weave.NewID(), weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(a, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(b, nil, "b")))
	require.True(t, w.AddNode(dagLeaf(c, []weave.Id{a, b}, "c")))

	_, ok := w.RemoveNode(a)
	require.True(t, ok)
	require.False(t, w.Contains(a))
	require.True(t, w.Contains(c), "c still has parent b, should survive")

	_, ok = w.RemoveNode(b)
	require.True(t, ok)
	require.False(t, w.Contains(c), "c lost its last parent, should cascade away")
}

func TestDagWeaveMoveNodeRejectsCycle(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	a, b := weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(a, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(b, []weave.Id{a}, "b")))

	require.False(t, w.MoveNode(a, []weave.Id{b}))
}

func TestDagWeaveMoveNodeUpdatesRoots(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	a, b, c := weave.NewID(), weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(a, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(b, nil, "b")))
	require.True(t, w.AddNode(dagLeaf(c, []weave.Id{a}, "c")))

	require.True(t, w.MoveNode(c, []weave.Id{b}))
	node, _ := w.GetNode(c)
	require.Equal(t, []weave.Id{b}, node.Parents)

	require.True(t, w.MoveNode(c, nil))
	require.Contains(t, w.Roots(), c)
}

func TestDagWeaveSplitAndMergeRoundTrip(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	root := weave.NewID()
	require.True(t, w.AddNode(dagLeaf(root, nil, "hello")))

	newID := weave.NewID()
	right, ok := w.SplitNode(root, 2, newID)
	require.True(t, ok)

	require.True(t, w.IsMergeableWithParent(right))
	survivor, ok := w.MergeWithParent(right)
	require.True(t, ok)
	require.Equal(t, root, survivor)
	merged, _ := w.GetNode(root)
	require.Equal(t, []byte("hello"), merged.Contents.Content.AsBytes())
}

func TestDagWeaveFindDuplicatesActiveParentsOnly(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	p1, p2 := weave.NewID(), weave.NewID()
	n1 := dagLeaf(p1, nil, "p1")
	n1.Active = true
	require.True(t, w.AddNode(n1))
	require.True(t, w.AddNode(dagLeaf(p2, nil, "p2")))

	id := weave.NewID()
	shared := dagLeaf(id, []weave.Id{p1, p2}, "shared")
	shared.Active = true
	require.True(t, w.AddNode(shared))

	dupUnderP2 := weave.NewID()
	require.True(t, w.AddNode(dagLeaf(dupUnderP2, []weave.Id{p2}, "shared")))

	dupUnderP1 := weave.NewID()
	dup1 := dagLeaf(dupUnderP1, []weave.Id{p1}, "shared")
	require.True(t, w.AddNode(dup1))

	dups := w.FindDuplicates(id)
	require.Equal(t, []weave.Id{dupUnderP1}, dups)
}

package weave_test

import (
	"testing"

	"github.com/brunokim/tapestry-weave/weave"
	"github.com/stretchr/testify/require"
)

func TestReconcileActiveTreeAppendsLeaf(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	n := leaf(root, weave.Id{}, false, "hel")
	n.Active = true
	require.True(t, w.AddNode(n))

	attrs := weave.NewOrderedStringMap()
	ids := []weave.Id{weave.NewID()}
	i := 0
	changed := weave.ReconcileActiveTree(w, []byte("hello"), attrs, func() weave.Id {
		id := ids[i]
		i++
		return id
	})
	require.True(t, changed)

	thread := w.ActiveThread()
	var content []byte
	for j := len(thread) - 1; j >= 0; j-- {
		node, ok := w.GetNode(thread[j])
		require.True(t, ok)
		content = append(content, node.Contents.Content.AsBytes()...)
	}
	require.Equal(t, []byte("hello"), content)
}

func TestReconcileActiveTreeSplitsOnDivergence(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	n := leaf(root, weave.Id{}, false, "hello")
	n.Active = true
	require.True(t, w.AddNode(n))

	attrs := weave.NewOrderedStringMap()
	ids := []weave.Id{weave.NewID(), weave.NewID()}
	i := 0
	changed := weave.ReconcileActiveTree(w, []byte("help"), attrs, func() weave.Id {
		id := ids[i]
		i++
		return id
	})
	require.True(t, changed)

	thread := w.ActiveThread()
	var content []byte
	for j := len(thread) - 1; j >= 0; j-- {
		node, ok := w.GetNode(thread[j])
		require.True(t, ok)
		content = append(content, node.Contents.Content.AsBytes()...)
	}
	require.Equal(t, []byte("help"), content)
}

func TestReconcileActiveTreeRebuildsPlainTailWhenAlreadyEqual(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	n := leaf(root, weave.Id{}, false, "hello")
	n.Active = true
	require.True(t, w.AddNode(n))

	// The lone root already spells the target, but it is a plain tail (only
	// root, no creator, same attributes, no children), so it is removed and
	// its bytes are re-added as a fresh leaf.
	attrs := weave.NewOrderedStringMap()
	changed := weave.ReconcileActiveTree(w, []byte("hello"), attrs, weave.NewID)
	require.True(t, changed)
	require.False(t, w.Contains(root))
}

func TestReconcileActiveDagAppendsLeaf(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	root := weave.NewID()
	n := dagLeaf(root, nil, "hel")
	n.Active = true
	require.True(t, w.AddNode(n))

	attrs := weave.NewOrderedStringMap()
	changed := weave.ReconcileActiveDag(w, []byte("hello"), attrs, weave.NewID)
	require.True(t, changed)

	thread := w.ActiveThread()
	var content []byte
	for j := len(thread) - 1; j >= 0; j-- {
		node, ok := w.GetNode(thread[j])
		require.True(t, ok)
		content = append(content, node.Contents.Content.AsBytes()...)
	}
	require.Equal(t, []byte("hello"), content)
}

package weave_test

import (
	"bytes"
	"testing"

	"github.com/brunokim/tapestry-weave/weave"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTreeSnapshotRoundTrip(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	root := weave.NewID()
	child := weave.NewID()
	require.True(t, w.AddNode(leaf(root, weave.Id{}, false, "hello")))
	n := leaf(child, root, true, "world")
	n.Active = true
	n.Bookmarked = true
	require.True(t, w.AddNode(n))
	w.Metadata().Set("title", "demo")

	var buf bytes.Buffer
	require.NoError(t, weave.WriteTreeSnapshot(&buf, w))

	got, err := weave.ReadTreeSnapshot(&buf)
	require.NoError(t, err)

	diff := cmp.Diff(snapshotShapeTree(t, w), snapshotShapeTree(t, got))
	require.Empty(t, diff)
	require.NoError(t, got.Verify())
}

func TestDagSnapshotRoundTrip(t *testing.T) {
	w := weave.NewDagWeave[weave.NodeContent]()
	a, b, c := weave.NewID(), weave.NewID(), weave.NewID()
	require.True(t, w.AddNode(dagLeaf(a, nil, "a")))
	require.True(t, w.AddNode(dagLeaf(b, nil, "b")))
	n := dagLeaf(c, []weave.Id{a, b}, "c")
	n.Active = true
	require.True(t, w.AddNode(n))

	var buf bytes.Buffer
	require.NoError(t, weave.WriteDagSnapshot(&buf, w))

	got, err := weave.ReadDagSnapshot(&buf)
	require.NoError(t, err)
	require.NoError(t, got.Verify())
	require.ElementsMatch(t, w.Roots(), got.Roots())
	require.ElementsMatch(t, w.Active(), got.Active())
}

func TestReadTreeSnapshotRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a real snapshot at all, too short")
	_, err := weave.ReadTreeSnapshot(buf)
	require.ErrorIs(t, err, weave.ErrDecode)
}

func TestTextDocumentRoundTrip(t *testing.T) {
	doc := weave.TextDocument{Content: []byte("hello world"), Metadata: map[string]string{"lang": "en"}}
	var buf bytes.Buffer
	require.NoError(t, weave.WriteTextDocument(&buf, doc))

	got, err := weave.ReadTextDocument(&buf)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestReadTextDocumentRejectsWeaveSnapshot(t *testing.T) {
	w := weave.NewTreeWeave[weave.NodeContent]()
	require.True(t, w.AddNode(leaf(weave.NewID(), weave.Id{}, false, "a")))
	var buf bytes.Buffer
	require.NoError(t, weave.WriteTreeSnapshot(&buf, w))

	_, err := weave.ReadTextDocument(&buf)
	require.ErrorIs(t, err, weave.ErrDecode)
}

type nodePair struct {
	Id       weave.Id
	Contents []byte
}

func snapshotShapeTree(t *testing.T, w *weave.TreeWeave[weave.NodeContent]) []nodePair {
	t.Helper()
	var out []nodePair
	for _, id := range w.OrderedIds() {
		n, ok := w.GetNode(id)
		require.True(t, ok)
		out = append(out, nodePair{Id: n.Id, Contents: n.Contents.Content.AsBytes()})
	}
	return out
}

package weave

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Snapshot envelope layout (§4.6 SnapshotCodec): a fixed 24-byte magic
// identifying the payload kind, a little-endian uint64 format version, and
// a gob-encoded payload. encoding/gob is the stdlib codec (§2 Domain Stack):
// the example pack carries no message-format library (no protobuf, cbor,
// msgpack, capnproto anywhere in it), so gob — already idiomatic for
// Go-to-Go persistence and adequate for a single-process authoring tool
// with no cross-language consumer — is used directly rather than inventing
// a dependency the pack never shows.
const (
	weaveMagic             = "VersionedTapestryWeave__"
	textMagic              = "VersionedTapestryText___"
	currentSnapshotVersion = uint64(0)
)

func writeEnvelope(w io.Writer, magic string, payload any) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	var versionBytes [8]byte
	binary.LittleEndian.PutUint64(versionBytes[:], currentSnapshotVersion)
	if _, err := w.Write(versionBytes[:]); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(payload)
}

func readEnvelope(r io.Reader, magic string, payload any) error {
	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if string(gotMagic) != magic {
		return fmt.Errorf("%w: unrecognized magic %q", ErrDecode, gotMagic)
	}
	var versionBytes [8]byte
	if _, err := io.ReadFull(r, versionBytes[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	version := binary.LittleEndian.Uint64(versionBytes[:])
	if version != currentSnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", ErrDecode, version)
	}
	if err := gob.NewDecoder(r).Decode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

type orderedStringMapGob struct {
	Keys   []string
	Values map[string]string
}

func (m *OrderedStringMap) GobEncode() ([]byte, error) {
	return gobEncode(orderedStringMapGob{Keys: m.Keys(), Values: m.values})
}

func (m *OrderedStringMap) GobDecode(data []byte) error {
	var s orderedStringMapGob
	if err := gobDecode(data, &s); err != nil {
		return err
	}
	m.keys = s.Keys
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	m.values = s.Values
	return nil
}

type treeWeaveGob[T any] struct {
	Nodes      []TreeNode[T]
	Roots      []Id
	Active     Id
	HasActive  bool
	Bookmarked []Id
	Metadata   *OrderedStringMap
}

// GobEncode lets *TreeWeave[T] serialize through its exported TreeNode view
// rather than its unexported fields: nodes are listed in OrderedIds order,
// and roots/bookmarked/active are captured alongside to reproduce the exact
// structure on decode.
func (w *TreeWeave[T]) GobEncode() ([]byte, error) {
	nodes := make([]TreeNode[T], 0, len(w.nodes))
	for _, id := range w.OrderedIds() {
		nodes = append(nodes, w.nodes[id].view())
	}
	shadow := treeWeaveGob[T]{
		Nodes:      nodes,
		Roots:      w.roots.Ids(),
		Active:     w.active,
		HasActive:  w.hasActive,
		Bookmarked: w.bookmarked.Ids(),
		Metadata:   w.metadata,
	}
	return gobEncode(shadow)
}

func (w *TreeWeave[T]) GobDecode(data []byte) error {
	var shadow treeWeaveGob[T]
	if err := gobDecode(data, &shadow); err != nil {
		return err
	}
	w.nodes = make(map[Id]*treeNode[T], len(shadow.Nodes))
	for _, tn := range shadow.Nodes {
		w.nodes[tn.Id] = newTreeNodeFrom(tn)
	}
	w.roots = newIdSetOf(shadow.Roots...)
	w.active = shadow.Active
	w.hasActive = shadow.HasActive
	w.bookmarked = newIdSetOf(shadow.Bookmarked...)
	w.metadata = shadow.Metadata
	if w.metadata == nil {
		w.metadata = NewOrderedStringMap()
	}
	return nil
}

type dagWeaveGob[T any] struct {
	Nodes      []DagNode[T]
	Roots      []Id
	Active     []Id
	Bookmarked []Id
	Metadata   *OrderedStringMap
}

func (w *DagWeave[T]) GobEncode() ([]byte, error) {
	nodes := make([]DagNode[T], 0, len(w.nodes))
	for _, id := range w.OrderedIds() {
		nodes = append(nodes, w.nodes[id].view())
	}
	shadow := dagWeaveGob[T]{
		Nodes:      nodes,
		Roots:      w.roots.Ids(),
		Active:     w.active.Ids(),
		Bookmarked: w.bookmarked.Ids(),
		Metadata:   w.metadata,
	}
	return gobEncode(shadow)
}

func (w *DagWeave[T]) GobDecode(data []byte) error {
	var shadow dagWeaveGob[T]
	if err := gobDecode(data, &shadow); err != nil {
		return err
	}
	w.nodes = make(map[Id]*dagNode[T], len(shadow.Nodes))
	for _, dn := range shadow.Nodes {
		w.nodes[dn.Id] = newDagNodeFrom(dn)
	}
	w.roots = newIdSetOf(shadow.Roots...)
	w.active = newIdSetOf(shadow.Active...)
	w.bookmarked = newIdSetOf(shadow.Bookmarked...)
	w.metadata = shadow.Metadata
	if w.metadata == nil {
		w.metadata = NewOrderedStringMap()
	}
	return nil
}

// WriteTreeSnapshot writes w to dst in the versioned envelope format.
func WriteTreeSnapshot(dst io.Writer, w *TreeWeave[NodeContent]) error {
	return writeEnvelope(dst, weaveMagic, w)
}

// ReadTreeSnapshot reads a TreeWeave previously written by WriteTreeSnapshot.
func ReadTreeSnapshot(src io.Reader) (*TreeWeave[NodeContent], error) {
	w := NewTreeWeave[NodeContent]()
	if err := readEnvelope(src, weaveMagic, w); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteDagSnapshot writes w to dst in the versioned envelope format.
func WriteDagSnapshot(dst io.Writer, w *DagWeave[NodeContent]) error {
	return writeEnvelope(dst, weaveMagic, w)
}

// ReadDagSnapshot reads a DagWeave previously written by WriteDagSnapshot.
func ReadDagSnapshot(src io.Reader) (*DagWeave[NodeContent], error) {
	w := NewDagWeave[NodeContent]()
	if err := readEnvelope(src, weaveMagic, w); err != nil {
		return nil, err
	}
	return w, nil
}

// TextDocument is the ".tapestrytext" sidecar format (§3 SUPPLEMENTED
// FEATURES): a flattened active-thread export, carrying its own magic so it
// is never mistaken for a full weave snapshot.
type TextDocument struct {
	Content  []byte
	Metadata map[string]string
}

// WriteTextDocument writes doc to dst in the versioned envelope format.
func WriteTextDocument(dst io.Writer, doc TextDocument) error {
	return writeEnvelope(dst, textMagic, doc)
}

// ReadTextDocument reads a TextDocument previously written by
// WriteTextDocument.
func ReadTextDocument(src io.Reader) (TextDocument, error) {
	var doc TextDocument
	if err := readEnvelope(src, textMagic, &doc); err != nil {
		return TextDocument{}, err
	}
	return doc, nil
}

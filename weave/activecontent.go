package weave

import "bytes"

// ReconcileActiveTree implements §4.5's active-content reconciliation for a
// TreeWeave[NodeContent]: the active thread's concatenated bytes are
// compared against target, and the thread is edited in place — splitting at
// the first point of divergence, removing the last kept node when it is a
// plain tail (only child, no creator, attributes equal to attrs, children
// that are leaves) so its bytes are re-added with the remainder, and
// appending a new leaf for any remainder — so that afterward the active
// thread's bytes equal target. The plain-tail removal also happens when the
// thread already equals target, in which case the tail is replaced by an
// equal new leaf. newID supplies fresh Ids for any node created along the
// way. Returns whether the Weave's structure changed.
func ReconcileActiveTree(w *TreeWeave[NodeContent], target []byte, attrs *OrderedStringMap, newID func() Id) bool {
	offset := 0
	changed := false
	var lastKept Id
	hasLastKept := false

	for _, id := range w.activeThreadReversed() {
		node, ok := w.GetNode(id)
		if !ok {
			continue
		}
		b := node.Contents.Content.AsBytes()
		if offset+len(b) <= len(target) && bytes.Equal(target[offset:offset+len(b)], b) {
			offset += len(b)
			lastKept, hasLastKept = id, true
			continue
		}
		p := longestCommonPrefixLen(target[offset:], b)
		if p > 0 {
			if _, ok := w.SplitNode(id, p, newID()); ok {
				changed = true
			}
			offset += p
			lastKept, hasLastKept = id, true
		}
		break
	}

	anchor, hasAnchor := lastKept, hasLastKept
	if hasLastKept {
		node, _ := w.GetNode(lastKept)
		if treeOnlyChild(w, lastKept) && node.Contents.Creator == nil &&
			node.Contents.Metadata.Equal(attrs) && treeChildrenAreLeaves(w, lastKept) {
			b := node.Contents.Content.AsBytes()
			parent, hasParent := node.Parent, node.HasParent
			if _, ok := w.RemoveNode(lastKept); ok {
				changed = true
				offset -= len(b)
				anchor, hasAnchor = parent, hasParent
			}
		}
	}

	if offset < len(target) {
		leaf := TreeNode[NodeContent]{
			Id:        newID(),
			Parent:    anchor,
			HasParent: hasAnchor,
			Active:    true,
			Contents: NodeContent{
				Content:  Snippet(append([]byte(nil), target[offset:]...)),
				Metadata: attrs.Clone(),
			},
		}
		if w.AddNode(leaf) {
			changed = true
		}
	}
	return changed
}

func treeOnlyChild(w *TreeWeave[NodeContent], id Id) bool {
	node, ok := w.GetNode(id)
	if !ok {
		return false
	}
	if node.HasParent {
		parent, ok := w.GetNode(node.Parent)
		return ok && len(parent.Children) == 1
	}
	return len(w.Roots()) == 1
}

func treeChildrenAreLeaves(w *TreeWeave[NodeContent], id Id) bool {
	node, ok := w.GetNode(id)
	if !ok {
		return false
	}
	for _, cid := range node.Children {
		child, ok := w.GetNode(cid)
		if !ok || len(child.Children) > 0 {
			return false
		}
	}
	return true
}

// ReconcileActiveDag is ReconcileActiveTree's counterpart for
// DagWeave[NodeContent]. "Only child" is judged across every one of the
// node's parents (it must be each parent's sole child), since a DAG node can
// be reached through more than one parent edge.
func ReconcileActiveDag(w *DagWeave[NodeContent], target []byte, attrs *OrderedStringMap, newID func() Id) bool {
	offset := 0
	changed := false
	var lastKept Id
	hasLastKept := false

	for _, id := range w.activeThreadRootToChild() {
		node, ok := w.GetNode(id)
		if !ok {
			continue
		}
		b := node.Contents.Content.AsBytes()
		if offset+len(b) <= len(target) && bytes.Equal(target[offset:offset+len(b)], b) {
			offset += len(b)
			lastKept, hasLastKept = id, true
			continue
		}
		p := longestCommonPrefixLen(target[offset:], b)
		if p > 0 {
			if _, ok := w.SplitNode(id, p, newID()); ok {
				changed = true
			}
			offset += p
			lastKept, hasLastKept = id, true
		}
		break
	}

	var anchorParents []Id
	hasAnchor := hasLastKept
	if hasLastKept {
		anchorParents = []Id{lastKept}
	}
	if hasLastKept {
		node, _ := w.GetNode(lastKept)
		if dagOnlyChild(w, lastKept) && node.Contents.Creator == nil &&
			node.Contents.Metadata.Equal(attrs) && dagChildrenAreLeaves(w, lastKept) {
			b := node.Contents.Content.AsBytes()
			parents := node.Parents
			if _, ok := w.RemoveNode(lastKept); ok {
				changed = true
				offset -= len(b)
				anchorParents = parents
				hasAnchor = len(parents) > 0
			}
		}
	}

	if offset < len(target) {
		leaf := DagNode[NodeContent]{
			Id:      newID(),
			Parents: anchorParents,
			Active:  true,
			Contents: NodeContent{
				Content:  Snippet(append([]byte(nil), target[offset:]...)),
				Metadata: attrs.Clone(),
			},
		}
		if hasAnchor || len(anchorParents) > 0 {
			leaf.Parents = anchorParents
		}
		if w.AddNode(leaf) {
			changed = true
		}
	}
	return changed
}

func dagOnlyChild(w *DagWeave[NodeContent], id Id) bool {
	node, ok := w.GetNode(id)
	if !ok {
		return false
	}
	if len(node.Parents) == 0 {
		return len(w.Roots()) == 1
	}
	for _, pid := range node.Parents {
		parent, ok := w.GetNode(pid)
		if !ok || len(parent.Children) != 1 {
			return false
		}
	}
	return true
}

func dagChildrenAreLeaves(w *DagWeave[NodeContent], id Id) bool {
	node, ok := w.GetNode(id)
	if !ok {
		return false
	}
	for _, cid := range node.Children {
		child, ok := w.GetNode(cid)
		if !ok || len(child.Children) > 0 {
			return false
		}
	}
	return true
}

func longestCommonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

package weave

import "sort"

// TreeWeave is a Weave in which each node has at most one parent (§4.3):
// contents of a node semantically depend on the concatenation of its
// ancestors' contents. State: nodes, roots, a single optional active Id,
// bookmarked, and metadata — no scratch buffers are part of the semantic
// state that SnapshotCodec round-trips.
type TreeWeave[T Content[T]] struct {
	nodes      map[Id]*treeNode[T]
	roots      *idSet
	active     Id
	hasActive  bool
	bookmarked *idSet
	metadata   *OrderedStringMap
}

// NewTreeWeave returns an empty TreeWeave.
func NewTreeWeave[T Content[T]]() *TreeWeave[T] {
	return NewTreeWeaveWithCapacity[T](0)
}

// NewTreeWeaveWithCapacity returns an empty TreeWeave whose node map is
// pre-sized for capacity nodes, for bulk loads (supplemented from
// original_source's DependentWeave::with_capacity).
func NewTreeWeaveWithCapacity[T Content[T]](capacity int) *TreeWeave[T] {
	return &TreeWeave[T]{
		nodes:      make(map[Id]*treeNode[T], capacity),
		roots:      newIdSet(),
		bookmarked: newIdSet(),
		metadata:   NewOrderedStringMap(),
	}
}

// Reserve grows the node map's backing storage by additional entries ahead
// of a bulk load. Go maps don't expose a reserve primitive directly, so this
// rebuilds the map at the larger size; it is a best-effort hint, not a
// correctness requirement.
func (w *TreeWeave[T]) Reserve(additional int) {
	grown := make(map[Id]*treeNode[T], len(w.nodes)+additional)
	for k, v := range w.nodes {
		grown[k] = v
	}
	w.nodes = grown
}

// ShrinkTo shrinks the node map's backing storage toward minCapacity.
func (w *TreeWeave[T]) ShrinkTo(minCapacity int) {
	if minCapacity < len(w.nodes) {
		minCapacity = len(w.nodes)
	}
	shrunk := make(map[Id]*treeNode[T], minCapacity)
	for k, v := range w.nodes {
		shrunk[k] = v
	}
	w.nodes = shrunk
}

// Size returns the number of nodes.
func (w *TreeWeave[T]) Size() int { return len(w.nodes) }

// IsEmpty reports whether the Weave holds no nodes.
func (w *TreeWeave[T]) IsEmpty() bool { return len(w.nodes) == 0 }

// Contains reports whether id names a node in the Weave.
func (w *TreeWeave[T]) Contains(id Id) bool {
	_, ok := w.nodes[id]
	return ok
}

// ContainsActive reports whether id is the current active node.
func (w *TreeWeave[T]) ContainsActive(id Id) bool {
	return w.hasActive && w.active == id
}

// GetNode returns a read-only view of the node, and whether it exists.
func (w *TreeWeave[T]) GetNode(id Id) (TreeNode[T], bool) {
	n, ok := w.nodes[id]
	if !ok {
		return TreeNode[T]{}, false
	}
	return n.view(), true
}

// GetContents returns the node's contents directly. TreeWeave has no
// content setter or mutable-reference escape hatch; content changes go
// through SplitNode/MergeWithParent/AddNode, matching the Discrete payload's
// value semantics.
func (w *TreeWeave[T]) GetContents(id Id) (T, bool) {
	n, ok := w.nodes[id]
	if !ok {
		var zero T
		return zero, false
	}
	return n.contents, true
}

// Roots returns the ordered set of root Ids.
func (w *TreeWeave[T]) Roots() []Id { return w.roots.Ids() }

// Bookmarks returns the ordered set of bookmarked Ids.
func (w *TreeWeave[T]) Bookmarks() []Id { return w.bookmarked.Ids() }

// Metadata returns the Weave's free-form metadata map for reading or
// mutation by the caller.
func (w *TreeWeave[T]) Metadata() *OrderedStringMap { return w.metadata }

// OrderedIds returns every node Id in a deterministic preorder traversal
// from roots, matching the rendering order a Loom UI would walk.
func (w *TreeWeave[T]) OrderedIds() []Id {
	var out []Id
	var visit func(id Id)
	visit = func(id Id) {
		out = append(out, id)
		if n, ok := w.nodes[id]; ok {
			for _, c := range n.children.Ids() {
				visit(c)
			}
		}
	}
	for _, r := range w.roots.Ids() {
		visit(r)
	}
	return out
}

// ReverseOrderedIds returns OrderedIds in reverse.
func (w *TreeWeave[T]) ReverseOrderedIds() []Id {
	ids := w.OrderedIds()
	out := make([]Id, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// AddNode inserts n into the Weave (§4.3 add_node). Fails, leaving the
// Weave unchanged, if: the node count is already at the size bound; n.Id
// collides with an existing node; n's local invariants are violated; n has
// any children (new nodes must be leaves); or n has a parent that isn't
// present. On success, n is linked into its parent's children (or roots),
// any previously active node is deactivated if n.Active, and n joins
// bookmarked if n.Bookmarked.
func (w *TreeWeave[T]) AddNode(n TreeNode[T]) bool {
	if len(w.nodes) >= maxNodes {
		return false
	}
	if _, exists := w.nodes[n.Id]; exists {
		return false
	}
	if !n.validate() {
		return false
	}
	if len(n.Children) != 0 {
		return false
	}
	if n.HasParent {
		parent, ok := w.nodes[n.Parent]
		if !ok {
			return false
		}
		parent.children.Add(n.Id)
	} else {
		w.roots.Add(n.Id)
	}
	if n.Active {
		if w.hasActive {
			if old, ok := w.nodes[w.active]; ok {
				old.active = false
			}
		}
		w.active = n.Id
		w.hasActive = true
	}
	if n.Bookmarked {
		w.bookmarked.Add(n.Id)
	}
	w.nodes[n.Id] = newTreeNodeFrom(n)
	return true
}

// AddNodeDeduplicated adds n and then, if it turns out to be a structural
// duplicate of a sibling, removes it again — supplemented from the
// source's TapestryWeave::add_node (§3 SUPPLEMENTED FEATURES / scenario S4).
// If n was to become active, activity transfers to the surviving duplicate
// that was part of the previously active thread, or else the first
// duplicate found. Returns whether the initial insertion succeeded.
func (w *TreeWeave[T]) AddNodeDeduplicated(n TreeNode[T]) bool {
	var lastActive map[Id]bool
	if n.Active {
		lastActive = make(map[Id]bool)
		for _, id := range w.ActiveThread() {
			lastActive[id] = true
		}
	}
	isActive := n.Active
	identifier := n.Id
	if !w.AddNode(n) {
		return false
	}
	duplicates := w.FindDuplicates(identifier)
	if len(duplicates) > 0 {
		if isActive {
			hasActive := false
			for _, dup := range duplicates {
				if lastActive[dup] {
					w.SetActiveStatusInPlace(dup, true)
					hasActive = true
					break
				}
			}
			if !hasActive {
				w.SetActiveStatusInPlace(duplicates[0], true)
			}
		}
		w.RemoveNode(identifier)
	}
	return true
}

// RemoveNode removes id and cascades to all of its descendants (§4.3
// remove_node). If a removed node was active, active moves to the removed
// subtree root's parent (which is marked active), or becomes empty if the
// subtree root had no parent. Returns the removed subtree root's node and
// true, or a zero value and false if id is absent. Descendants are
// discarded without being returned.
func (w *TreeWeave[T]) RemoveNode(id Id) (TreeNode[T], bool) {
	node, ok := w.nodes[id]
	if !ok {
		return TreeNode[T]{}, false
	}
	parent, hasParent := node.parent, node.hasParent
	if hasParent {
		if p, ok := w.nodes[parent]; ok {
			p.children.Remove(id)
		}
	} else {
		w.roots.Remove(id)
	}

	// Iterative work-list over descendants, per §5's guidance to avoid
	// unbounded recursion depth on deep weaves.
	toRemove := []Id{id}
	var wasActive bool
	for len(toRemove) > 0 {
		cur := toRemove[len(toRemove)-1]
		toRemove = toRemove[:len(toRemove)-1]
		n, ok := w.nodes[cur]
		if !ok {
			continue
		}
		if n.active {
			wasActive = true
		}
		if n.bookmarked {
			w.bookmarked.Remove(cur)
		}
		toRemove = append(toRemove, n.children.Ids()...)
		delete(w.nodes, cur)
	}

	if wasActive {
		if hasParent {
			if p, ok := w.nodes[parent]; ok {
				p.active = true
			}
			w.active = parent
			w.hasActive = true
		} else {
			w.hasActive = false
			w.active = Id{}
		}
	}
	return node.view(), true
}

// SetActiveStatus is the UI-facing activation entrypoint. On TreeWeave both
// modes of the alternate hint delegate to SetActiveStatusInPlace (§4.3).
func (w *TreeWeave[T]) SetActiveStatus(id Id, value bool, alternate bool) bool {
	return w.SetActiveStatusInPlace(id, value)
}

// SetActiveStatusInPlace is idempotent: setting true clears the previous
// active node's flag, sets this node's flag, and updates active; setting
// false on the current active clears active. Returns whether id exists.
func (w *TreeWeave[T]) SetActiveStatusInPlace(id Id, value bool) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	if value {
		if w.hasActive && w.active != id {
			if old, ok := w.nodes[w.active]; ok {
				old.active = false
			}
		}
		node.active = true
		w.active = id
		w.hasActive = true
	} else {
		node.active = false
		if w.hasActive && w.active == id {
			w.hasActive = false
			w.active = Id{}
		}
	}
	return true
}

// SetBookmarkedStatus toggles both the node's flag and bookmarked set
// membership. Returns whether id exists.
func (w *TreeWeave[T]) SetBookmarkedStatus(id Id, value bool) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	node.bookmarked = value
	if value {
		w.bookmarked.Add(id)
	} else {
		w.bookmarked.Remove(id)
	}
	return true
}

func (w *TreeWeave[T]) sortIdSetBy(s *idSet, less func(a, b TreeNode[T]) bool) {
	sort.SliceStable(s.order, func(i, j int) bool {
		ni, nj := w.nodes[s.order[i]], w.nodes[s.order[j]]
		return less(ni.view(), nj.view())
	})
	for i, id := range s.order {
		s.index[id] = i
	}
}

// SortChildrenBy stably reorders id's children using less. Returns whether
// id exists.
func (w *TreeWeave[T]) SortChildrenBy(id Id, less func(a, b TreeNode[T]) bool) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	w.sortIdSetBy(node.children, less)
	return true
}

// SortRootsBy stably reorders the root set using less.
func (w *TreeWeave[T]) SortRootsBy(less func(a, b TreeNode[T]) bool) {
	w.sortIdSetBy(w.roots, less)
}

// ActiveThread returns the ordered sequence of Ids from the active node
// upward via parent links to a root; empty if there is no active node.
func (w *TreeWeave[T]) ActiveThread() []Id {
	if !w.hasActive {
		return nil
	}
	return w.ThreadFrom(w.active)
}

// ThreadFrom returns the ordered sequence of Ids from id upward via parent
// links to a root; empty if id is absent.
func (w *TreeWeave[T]) ThreadFrom(id Id) []Id {
	cur, ok := w.nodes[id]
	if !ok {
		return nil
	}
	var thread []Id
	curID := id
	for {
		thread = append(thread, curID)
		if !cur.hasParent {
			break
		}
		p, ok := w.nodes[cur.parent]
		if !ok {
			break
		}
		curID = cur.parent
		cur = p
	}
	return thread
}

// activeThreadReversed returns ActiveThread in root-to-child order, the walk
// direction ActiveContent reconciliation (§4.5) needs.
func (w *TreeWeave[T]) activeThreadReversed() []Id {
	thread := w.ActiveThread()
	out := make([]Id, len(thread))
	for i, id := range thread {
		out[len(thread)-1-i] = id
	}
	return out
}

// SplitNode splits the node at id at byte offset at, giving the new right
// half newId (§4.3 split_node, Discrete payload only). Preconditions:
// newId != id and newId is not already present. On a genuine split, the
// original node keeps the left half and id's former children are
// reparented to the new node; active/bookmarked flags stay on the original.
// If the payload can't be split (returns One), the Weave is left with only
// the (possibly renormalized) original content and false is returned.
func (w *TreeWeave[T]) SplitNode(id Id, at int, newId Id) (Id, bool) {
	if newId == id {
		return Id{}, false
	}
	if _, exists := w.nodes[newId]; exists {
		return Id{}, false
	}
	node, ok := w.nodes[id]
	if !ok {
		return Id{}, false
	}
	if len(w.nodes) >= maxNodes {
		return Id{}, false
	}
	result := node.contents.Split(at)
	left, right, isTwo := result.Two()
	if !isTwo {
		center, _ := result.One()
		node.contents = center
		return Id{}, false
	}
	oldChildren := node.children
	node.contents = left
	node.children = newIdSetOf(newId)
	newNode := &treeNode[T]{
		id:        newId,
		parent:    id,
		hasParent: true,
		children:  oldChildren,
		contents:  right,
	}
	for _, cid := range oldChildren.Ids() {
		if c, ok := w.nodes[cid]; ok {
			c.parent = newId
		}
	}
	w.nodes[newId] = newNode
	return newId, true
}

// MergeWithParent merges id's contents into its parent's (§4.3
// merge_with_parent, Discrete payload only). Requires id to have a parent,
// that parent to have exactly one child (id), and the merge to succeed
// (return One). On success the parent adopts id's children, id's active
// status (if any) transfers to the parent, id's bookmark is dropped, and
// the surviving parent Id is returned with true.
func (w *TreeWeave[T]) MergeWithParent(id Id) (Id, bool) {
	node, ok := w.nodes[id]
	if !ok {
		return Id{}, false
	}
	if !node.hasParent {
		return Id{}, false
	}
	parent, ok := w.nodes[node.parent]
	if !ok {
		return Id{}, false
	}
	if parent.children.Len() != 1 {
		return Id{}, false
	}
	result := parent.contents.Merge(node.contents)
	left, right, isTwo := result.Two()
	if isTwo {
		parent.contents = left
		node.contents = right
		return Id{}, false
	}
	merged, _ := result.One()
	parent.contents = merged
	parent.children = node.children
	for _, cid := range parent.children.Ids() {
		if c, ok := w.nodes[cid]; ok {
			c.parent = parent.id
		}
	}
	if node.active {
		parent.active = true
		w.active = parent.id
		w.hasActive = true
	}
	if node.bookmarked {
		w.bookmarked.Remove(id)
	}
	delete(w.nodes, id)
	return parent.id, true
}

// IsMergeableWithParent reports whether MergeWithParent would succeed,
// without performing it — useful for a UI deciding whether to show a merge
// affordance (supplemented from the source's is_mergeable_with_parent).
func (w *TreeWeave[T]) IsMergeableWithParent(id Id) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	if !node.hasParent {
		return false
	}
	parent, ok := w.nodes[node.parent]
	if !ok {
		return false
	}
	if parent.children.Len() != 1 {
		return false
	}
	_, _, isTwo := parent.contents.Merge(node.contents).Two()
	return !isTwo
}

// FindDuplicates yields the Ids of siblings (same parent, or other roots if
// id is itself a root) whose contents compare as a duplicate of id's.
func (w *TreeWeave[T]) FindDuplicates(id Id) []Id {
	node, ok := w.nodes[id]
	if !ok {
		return nil
	}
	var siblings []Id
	if node.hasParent {
		if p, ok := w.nodes[node.parent]; ok {
			siblings = p.children.Ids()
		}
	} else {
		siblings = w.roots.Ids()
	}
	var dups []Id
	for _, sid := range siblings {
		if sid == id {
			continue
		}
		sib, ok := w.nodes[sid]
		if !ok {
			continue
		}
		if node.contents.IsDuplicateOf(sib.contents) {
			dups = append(dups, sid)
		}
	}
	return dups
}

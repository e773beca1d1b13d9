package weave

// DagWeave is a Weave in which each node has any number of parents (§4.4):
// contents stand alone, independent of ancestry. State: nodes, roots, a set
// of active Ids forming a single "active path" (§4.4's active-path
// invariant), bookmarked, and metadata.
type DagWeave[T Content[T]] struct {
	nodes      map[Id]*dagNode[T]
	roots      *idSet
	active     *idSet
	bookmarked *idSet
	metadata   *OrderedStringMap
}

// NewDagWeave returns an empty DagWeave.
func NewDagWeave[T Content[T]]() *DagWeave[T] {
	return NewDagWeaveWithCapacity[T](0)
}

// NewDagWeaveWithCapacity returns an empty DagWeave pre-sized for capacity
// nodes.
func NewDagWeaveWithCapacity[T Content[T]](capacity int) *DagWeave[T] {
	return &DagWeave[T]{
		nodes:      make(map[Id]*dagNode[T], capacity),
		roots:      newIdSet(),
		active:     newIdSet(),
		bookmarked: newIdSet(),
		metadata:   NewOrderedStringMap(),
	}
}

// Reserve grows the node map's backing storage by additional entries.
func (w *DagWeave[T]) Reserve(additional int) {
	grown := make(map[Id]*dagNode[T], len(w.nodes)+additional)
	for k, v := range w.nodes {
		grown[k] = v
	}
	w.nodes = grown
}

// ShrinkTo shrinks the node map's backing storage toward minCapacity.
func (w *DagWeave[T]) ShrinkTo(minCapacity int) {
	if minCapacity < len(w.nodes) {
		minCapacity = len(w.nodes)
	}
	shrunk := make(map[Id]*dagNode[T], minCapacity)
	for k, v := range w.nodes {
		shrunk[k] = v
	}
	w.nodes = shrunk
}

// Size returns the number of nodes.
func (w *DagWeave[T]) Size() int { return len(w.nodes) }

// IsEmpty reports whether the Weave holds no nodes.
func (w *DagWeave[T]) IsEmpty() bool { return len(w.nodes) == 0 }

// Contains reports whether id names a node in the Weave.
func (w *DagWeave[T]) Contains(id Id) bool {
	_, ok := w.nodes[id]
	return ok
}

// ContainsActive reports whether id is a member of the active set.
func (w *DagWeave[T]) ContainsActive(id Id) bool {
	return w.active.Contains(id)
}

// GetNode returns a read-only view of the node, and whether it exists.
func (w *DagWeave[T]) GetNode(id Id) (DagNode[T], bool) {
	n, ok := w.nodes[id]
	if !ok {
		return DagNode[T]{}, false
	}
	return n.view(), true
}

// GetContents returns the node's contents.
func (w *DagWeave[T]) GetContents(id Id) (T, bool) {
	n, ok := w.nodes[id]
	if !ok {
		var zero T
		return zero, false
	}
	return n.contents, true
}

// SetContents overwrites a node's contents directly — the
// "get_contents_mut(id)" entry of §6's public API surface, adapted to Go's
// value semantics as a setter rather than a mutable reference. Returns
// whether id exists.
func (w *DagWeave[T]) SetContents(id Id, contents T) bool {
	n, ok := w.nodes[id]
	if !ok {
		return false
	}
	n.contents = contents
	return true
}

// Roots returns the ordered set of root Ids.
func (w *DagWeave[T]) Roots() []Id { return w.roots.Ids() }

// Bookmarks returns the ordered set of bookmarked Ids.
func (w *DagWeave[T]) Bookmarks() []Id { return w.bookmarked.Ids() }

// Active returns the current active set, in the order nodes were activated.
func (w *DagWeave[T]) Active() []Id { return w.active.Ids() }

// Metadata returns the Weave's free-form metadata map.
func (w *DagWeave[T]) Metadata() *OrderedStringMap { return w.metadata }

// OrderedIds returns every node Id in a deterministic preorder traversal
// from roots; a node reachable from more than one root is visited once, at
// its first encounter.
func (w *DagWeave[T]) OrderedIds() []Id {
	seen := make(map[Id]bool)
	var out []Id
	var visit func(id Id)
	visit = func(id Id) {
		if seen[id] {
			return
		}
		seen[id] = true
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
func (w *DagWeave[T]) ReverseOrderedIds() []Id {
	ids := w.OrderedIds()
	out := make([]Id, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// AddNode inserts n into the Weave (§4.4 add_node). Fails on: id collision;
// local invariant violation; a Parent or Child reference to an absent node.
// A non-empty Children list is otherwise allowed (unlike TreeWeave) as the
// mechanism for inserting n "above" existing nodes: those children lose
// any current root membership and gain n as an additional parent. If any
// such inherited child is active, n is forced active, to preserve the
// active-path invariant for that child. Activation (explicit or forced) is
// reconciled through the same algorithm as SetActiveStatusInPlace.
func (w *DagWeave[T]) AddNode(n DagNode[T]) bool {
	if len(w.nodes) >= maxNodes {
		return false
	}
	if _, exists := w.nodes[n.Id]; exists {
		return false
	}
	if !n.validate() {
		return false
	}
	for _, cid := range n.Children {
		if _, ok := w.nodes[cid]; !ok {
			return false
		}
	}
	for _, pid := range n.Parents {
		if _, ok := w.nodes[pid]; !ok {
			return false
		}
	}

	wantActive := n.Active
	unactivated := n
	unactivated.Active = false
	node := newDagNodeFrom(unactivated)
	w.nodes[n.Id] = node

	var activeInherited []Id
	for _, cid := range n.Children {
		child := w.nodes[cid]
		child.parents.Add(n.Id)
		w.roots.Remove(cid)
		if child.active {
			activeInherited = append(activeInherited, cid)
		}
	}
	if len(activeInherited) > 0 {
		wantActive = true
		for _, cid := range activeInherited[1:] {
			w.deactivateInPlace(cid)
		}
	}

	if len(n.Parents) == 0 {
		w.roots.Add(n.Id)
	} else {
		for _, pid := range n.Parents {
			w.nodes[pid].children.Add(n.Id)
		}
	}

	if wantActive {
		w.activateInPlace(n.Id)
	}
	if n.Bookmarked {
		node.bookmarked = true
		w.bookmarked.Add(n.Id)
	}
	return true
}

// RemoveNode removes id. Unlike TreeWeave, the cascade is partial (§4.4
// remove_node): a child loses only the back-edge to id; it is recursively
// removed only if that leaves it parentless, and otherwise is deactivated
// (cascading into its own now-orphaned active descendants) only if it was
// active, id was active, and it no longer has any active parent. Returns
// the removed node (only id's own entry; nodes swept up by the partial
// cascade are discarded) and true, or a zero value and false if absent.
func (w *DagWeave[T]) RemoveNode(id Id) (DagNode[T], bool) {
	top, ok := w.nodes[id]
	if !ok {
		return DagNode[T]{}, false
	}
	result := top.view()

	queue := []Id{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := w.nodes[cur]
		if !ok {
			continue
		}
		wasActive := n.active
		for _, pid := range n.parents.Ids() {
			if p, ok := w.nodes[pid]; ok {
				p.children.Remove(cur)
			}
		}
		if n.parents.Len() == 0 {
			w.roots.Remove(cur)
		}
		if n.active {
			w.active.Remove(cur)
		}
		if n.bookmarked {
			w.bookmarked.Remove(cur)
		}
		children := n.children.Ids()
		delete(w.nodes, cur)

		for _, cid := range children {
			child, ok := w.nodes[cid]
			if !ok {
				continue
			}
			child.parents.Remove(cur)
			if child.parents.Len() == 0 {
				queue = append(queue, cid)
			} else if wasActive && child.active {
				hasActiveParent := false
				for _, pid := range child.parents.Ids() {
					if p, ok := w.nodes[pid]; ok && p.active {
						hasActiveParent = true
						break
					}
				}
				if !hasActiveParent {
					w.deactivateInPlace(cid)
				}
			}
		}
	}
	return result, true
}

// MoveNode redirects id's parent edges to newParents (§4.4 move_node).
// Fails if any new parent is missing, newParents contains id, or any of
// id's current children appears in newParents (an immediate cycle); deeper
// cycles are not detected. On success, root membership is updated, and if
// id is active its activation is reconciled as in SetActiveStatusInPlace:
// active siblings under its new parents (or other active roots, if it
// became a root) are deactivated, or, with no active new parent, the first
// new parent is activated recursively.
func (w *DagWeave[T]) MoveNode(id Id, newParents []Id) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	newSet := make(map[Id]bool, len(newParents))
	for _, p := range newParents {
		if p == id {
			return false
		}
		if _, ok := w.nodes[p]; !ok {
			return false
		}
		newSet[p] = true
	}
	for _, cid := range node.children.Ids() {
		if newSet[cid] {
			return false
		}
	}

	oldParents := node.parents.Ids()
	oldSet := make(map[Id]bool, len(oldParents))
	for _, p := range oldParents {
		oldSet[p] = true
	}
	for _, p := range oldParents {
		if !newSet[p] {
			node.parents.Remove(p)
			if par, ok := w.nodes[p]; ok {
				par.children.Remove(id)
			}
		}
	}
	for _, p := range newParents {
		if !oldSet[p] {
			node.parents.Add(p)
			w.nodes[p].children.Add(id)
		}
	}

	if node.parents.Len() == 0 {
		w.roots.Add(id)
	} else {
		w.roots.Remove(id)
	}

	if node.active {
		w.activateInPlace(id)
	}
	return true
}

// SetActiveStatus is the UI-facing activation entrypoint (§4.4). If
// activating and the node has an active child, a "pull up" may apply
// instead of the core algorithm: with alternate=false and the active child
// having exactly one parent, or alternate=true and the active child having
// multiple parents, this node is activated directly and that child is
// deactivated. Otherwise (and always when deactivating) it falls through
// to SetActiveStatusInPlace.
func (w *DagWeave[T]) SetActiveStatus(id Id, value bool, alternate bool) bool {
	if !value {
		return w.SetActiveStatusInPlace(id, value)
	}
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	for _, cid := range node.children.Ids() {
		child, ok := w.nodes[cid]
		if !ok || !child.active {
			continue
		}
		pullUp := (!alternate && child.parents.Len() == 1) || (alternate && child.parents.Len() > 1)
		if pullUp {
			if !node.active {
				w.activateInPlace(id)
			}
			w.deactivateInPlace(cid)
			return true
		}
	}
	return w.SetActiveStatusInPlace(id, true)
}

// SetActiveStatusInPlace is the core activation algorithm (§4.4). Setting
// true on an inactive node either deactivates active siblings reachable via
// its parents (if one is already active) or climbs to activate its first
// listed parent first; setting false on an active node deactivates any
// children left with no active parent, cascading further. Returns whether
// id exists.
func (w *DagWeave[T]) SetActiveStatusInPlace(id Id, value bool) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	if value {
		if !node.active {
			w.activateInPlace(id)
		}
	} else if node.active {
		w.deactivateInPlace(id)
	}
	return true
}

// SetBookmarkedStatus toggles both the node's flag and bookmarked set
// membership. Returns whether id exists.
func (w *DagWeave[T]) SetBookmarkedStatus(id Id, value bool) bool {
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

// activateInPlace assumes id exists; it is also used to reconcile an
// already-active node after its parents change (MoveNode).
func (w *DagWeave[T]) activateInPlace(id Id) {
	node := w.nodes[id]
	if node.parents.Len() == 0 {
		for _, rid := range w.roots.Ids() {
			if rid == id {
				continue
			}
			if r, ok := w.nodes[rid]; ok && r.active {
				w.deactivateInPlace(rid)
			}
		}
	} else {
		anyParentActive := false
		for _, pid := range node.parents.Ids() {
			if p, ok := w.nodes[pid]; ok && p.active {
				anyParentActive = true
				break
			}
		}
		if anyParentActive {
			for _, pid := range node.parents.Ids() {
				p, ok := w.nodes[pid]
				if !ok {
					continue
				}
				for _, sid := range p.children.Ids() {
					if sid == id {
						continue
					}
					if s, ok := w.nodes[sid]; ok && s.active {
						w.deactivateInPlace(sid)
					}
				}
			}
		} else if first, ok := node.parents.First(); ok {
			w.activateInPlace(first)
		}
	}
	node.active = true
	w.active.Add(id)
}

// deactivateInPlace cascades deactivation iteratively (§5's work-list
// guidance) into children that lose their last active parent as a result.
func (w *DagWeave[T]) deactivateInPlace(id Id) {
	queue := []Id{id}
	visited := make(map[Id]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		node, ok := w.nodes[cur]
		if !ok || !node.active {
			continue
		}
		node.active = false
		w.active.Remove(cur)
		for _, cid := range node.children.Ids() {
			child, ok := w.nodes[cid]
			if !ok || !child.active || visited[cid] {
				continue
			}
			hasActiveParent := false
			for _, pid := range child.parents.Ids() {
				if p, ok := w.nodes[pid]; ok && p.active {
					hasActiveParent = true
					break
				}
			}
			if !hasActiveParent {
				queue = append(queue, cid)
			}
		}
	}
}

// SplitNode splits id at byte offset at into the original (parents, left
// half) and a new node newId (children, right half), per §4.4: the
// original keeps its parents and gains newId as its sole child; newId
// inherits the original's children, each rewritten from id to newId with
// its position in the child's parents set preserved (idSet.Replace).
// Active and bookmarked flags stay on the original; the new node is also
// made active when the original is active and one of the inherited
// children is active, so the active path stays connected.
func (w *DagWeave[T]) SplitNode(id Id, at int, newId Id) (Id, bool) {
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
	newNode := &dagNode[T]{
		id:       newId,
		parents:  newIdSetOf(id),
		children: oldChildren,
		contents: right,
	}
	for _, cid := range oldChildren.Ids() {
		if c, ok := w.nodes[cid]; ok {
			c.parents.Replace(id, newId)
		}
	}
	w.nodes[newId] = newNode
	if node.active {
		for _, cid := range oldChildren.Ids() {
			if c, ok := w.nodes[cid]; ok && c.active {
				newNode.active = true
				w.active.Add(newId)
				break
			}
		}
	}
	return newId, true
}

// MergeWithParent merges id into its sole parent (§4.4), requiring
// id to have exactly one parent and that parent to have exactly one child
// (id). Children reparent to the surviving parent with the same
// index-preserving substitution as SplitNode.
func (w *DagWeave[T]) MergeWithParent(id Id) (Id, bool) {
	node, ok := w.nodes[id]
	if !ok {
		return Id{}, false
	}
	if node.parents.Len() != 1 {
		return Id{}, false
	}
	parentId, _ := node.parents.First()
	parent, ok := w.nodes[parentId]
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
			c.parents.Replace(id, parent.id)
		}
	}
	if node.active {
		w.active.Remove(id)
		if !parent.active {
			parent.active = true
			w.active.Add(parent.id)
		}
	}
	if node.bookmarked {
		w.bookmarked.Remove(id)
	}
	delete(w.nodes, id)
	return parent.id, true
}

// IsMergeableWithParent reports whether MergeWithParent would succeed,
// without performing it.
func (w *DagWeave[T]) IsMergeableWithParent(id Id) bool {
	node, ok := w.nodes[id]
	if !ok {
		return false
	}
	if node.parents.Len() != 1 {
		return false
	}
	parentId, _ := node.parents.First()
	parent, ok := w.nodes[parentId]
	if !ok {
		return false
	}
	if parent.children.Len() != 1 {
		return false
	}
	_, _, isTwo := parent.contents.Merge(node.contents).Two()
	return !isTwo
}

// FindDuplicates yields duplicate siblings of id (§4.4): if id is active
// and has parents, only through its active parents; otherwise through all
// of its parents, or other roots if id is itself a root.
func (w *DagWeave[T]) FindDuplicates(id Id) []Id {
	node, ok := w.nodes[id]
	if !ok {
		return nil
	}
	siblings := newIdSet()
	if node.parents.Len() == 0 {
		for _, rid := range w.roots.Ids() {
			if rid != id {
				siblings.Add(rid)
			}
		}
	} else {
		parentIds := node.parents.Ids()
		if node.active {
			var activeParents []Id
			for _, pid := range parentIds {
				if p, ok := w.nodes[pid]; ok && p.active {
					activeParents = append(activeParents, pid)
				}
			}
			if len(activeParents) > 0 {
				parentIds = activeParents
			}
		}
		for _, pid := range parentIds {
			p, ok := w.nodes[pid]
			if !ok {
				continue
			}
			for _, cid := range p.children.Ids() {
				if cid != id {
					siblings.Add(cid)
				}
			}
		}
	}
	var dups []Id
	for _, sid := range siblings.Ids() {
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

// AddNodeDeduplicated mirrors TreeWeave's supplemented dedup-on-add (§3
// SUPPLEMENTED FEATURES).
func (w *DagWeave[T]) AddNodeDeduplicated(n DagNode[T]) bool {
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

// ActiveThread performs a DFS from active roots, descending only into
// active children (§4.4 Thread reconstruction). The active-path invariant
// means the active subgraph is a disjoint union of simple chains, so each
// root's chain is walked in a straight line; chains are concatenated in
// root order, and the whole sequence is then reversed so it reads
// deepest-first, child-to-root, matching TreeWeave's convention.
func (w *DagWeave[T]) ActiveThread() []Id {
	var forward []Id
	for _, rid := range w.roots.Ids() {
		r, ok := w.nodes[rid]
		if !ok || !r.active {
			continue
		}
		cur := rid
		for {
			forward = append(forward, cur)
			node := w.nodes[cur]
			next := Id{}
			found := false
			for _, cid := range node.children.Ids() {
				if c, ok := w.nodes[cid]; ok && c.active {
					next = cid
					found = true
					break
				}
			}
			if !found {
				break
			}
			cur = next
		}
	}
	out := make([]Id, len(forward))
	for i, id := range forward {
		out[len(forward)-1-i] = id
	}
	return out
}

// activeThreadRootToChild returns ActiveThread in root-to-child order.
func (w *DagWeave[T]) activeThreadRootToChild() []Id {
	thread := w.ActiveThread()
	out := make([]Id, len(thread))
	for i, id := range thread {
		out[len(thread)-1-i] = id
	}
	return out
}

// ThreadFrom follows parents upward from id, preferring an active parent at
// each step and falling back to the first listed parent, until a root is
// reached. If a cycle or break in the graph prevents reaching a root, the
// walk is extended with the trailing portion of ActiveThread beyond the
// walk's last node (§4.4).
func (w *DagWeave[T]) ThreadFrom(id Id) []Id {
	if _, ok := w.nodes[id]; !ok {
		return nil
	}
	var walk []Id
	visited := make(map[Id]bool)
	cur := id
	reachedRoot := false
	for {
		if visited[cur] {
			break
		}
		visited[cur] = true
		walk = append(walk, cur)
		node, ok := w.nodes[cur]
		if !ok {
			break
		}
		if node.parents.Len() == 0 {
			reachedRoot = true
			break
		}
		next := Id{}
		found := false
		for _, pid := range node.parents.Ids() {
			if p, ok := w.nodes[pid]; ok && p.active {
				next = pid
				found = true
				break
			}
		}
		if !found {
			next, found = node.parents.First()
		}
		if !found {
			break
		}
		cur = next
	}
	if !reachedRoot {
		top := cur
		activeThread := w.ActiveThread()
		for i, aid := range activeThread {
			if aid == top {
				walk = append(walk, activeThread[i+1:]...)
				break
			}
		}
	}
	return walk
}

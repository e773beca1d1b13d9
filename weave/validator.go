package weave

import "fmt"

// Verify walks a TreeWeave and reports the first invariant violation found
// (§3 Weave invariants, §4.7 Validator), wrapped in ErrCorrupt. A nil return
// means the Weave is internally consistent.
func (w *TreeWeave[T]) Verify() error {
	for id, n := range w.nodes {
		if n.id != id {
			return fmt.Errorf("%w: node stored at %s has id %s", ErrCorrupt, id, n.id)
		}
		if n.hasParent {
			p, ok := w.nodes[n.parent]
			if !ok {
				return fmt.Errorf("%w: %s has parent %s which does not exist", ErrCorrupt, id, n.parent)
			}
			if !p.children.Contains(id) {
				return fmt.Errorf("%w: %s's parent %s does not list it as a child", ErrCorrupt, id, n.parent)
			}
		} else if !w.roots.Contains(id) {
			return fmt.Errorf("%w: rootless node %s is not in the roots set", ErrCorrupt, id)
		}
		for _, cid := range n.children.Ids() {
			c, ok := w.nodes[cid]
			if !ok {
				return fmt.Errorf("%w: %s lists nonexistent child %s", ErrCorrupt, id, cid)
			}
			if !c.hasParent || c.parent != id {
				return fmt.Errorf("%w: %s's child %s does not point back to it", ErrCorrupt, id, cid)
			}
		}
		if n.bookmarked != w.bookmarked.Contains(id) {
			return fmt.Errorf("%w: %s's bookmarked flag disagrees with the bookmarked set", ErrCorrupt, id)
		}
	}
	for _, rid := range w.roots.Ids() {
		if _, ok := w.nodes[rid]; !ok {
			return fmt.Errorf("%w: roots set references nonexistent node %s", ErrCorrupt, rid)
		}
	}

	activeCount := 0
	for id, n := range w.nodes {
		if n.active {
			activeCount++
			if !w.hasActive || w.active != id {
				return fmt.Errorf("%w: %s is flagged active but is not the Weave's active node", ErrCorrupt, id)
			}
		}
	}
	if activeCount > 1 {
		return fmt.Errorf("%w: more than one node is flagged active", ErrCorrupt)
	}
	if w.hasActive {
		n, ok := w.nodes[w.active]
		if !ok {
			return fmt.Errorf("%w: active id %s does not exist", ErrCorrupt, w.active)
		}
		if !n.active {
			return fmt.Errorf("%w: active id %s is not flagged active", ErrCorrupt, w.active)
		}
	}

	visited := make(map[Id]bool, len(w.nodes))
	for _, rid := range w.roots.Ids() {
		if err := verifyTreeAcyclic(w, rid, visited); err != nil {
			return err
		}
	}
	if len(visited) != len(w.nodes) {
		return fmt.Errorf("%w: %d node(s) unreachable from any root", ErrCorrupt, len(w.nodes)-len(visited))
	}
	return nil
}

func verifyTreeAcyclic[T Content[T]](w *TreeWeave[T], id Id, visited map[Id]bool) error {
	if visited[id] {
		return fmt.Errorf("%w: %s is reachable from more than one path (cycle or shared ownership)", ErrCorrupt, id)
	}
	visited[id] = true
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("%w: roots/children reference nonexistent node %s", ErrCorrupt, id)
	}
	for _, cid := range n.children.Ids() {
		if err := verifyTreeAcyclic(w, cid, visited); err != nil {
			return err
		}
	}
	return nil
}

// Verify walks a DagWeave and reports the first invariant violation found,
// wrapped in ErrCorrupt.
func (w *DagWeave[T]) Verify() error {
	for id, n := range w.nodes {
		if n.id != id {
			return fmt.Errorf("%w: node stored at %s has id %s", ErrCorrupt, id, n.id)
		}
		if n.parents.Len() == 0 {
			if !w.roots.Contains(id) {
				return fmt.Errorf("%w: rootless node %s is not in the roots set", ErrCorrupt, id)
			}
		} else if w.roots.Contains(id) {
			return fmt.Errorf("%w: %s has parents but is still in the roots set", ErrCorrupt, id)
		}
		for _, pid := range n.parents.Ids() {
			p, ok := w.nodes[pid]
			if !ok {
				return fmt.Errorf("%w: %s lists nonexistent parent %s", ErrCorrupt, id, pid)
			}
			if !p.children.Contains(id) {
				return fmt.Errorf("%w: %s's parent %s does not list it as a child", ErrCorrupt, id, pid)
			}
		}
		for _, cid := range n.children.Ids() {
			c, ok := w.nodes[cid]
			if !ok {
				return fmt.Errorf("%w: %s lists nonexistent child %s", ErrCorrupt, id, cid)
			}
			if !c.parents.Contains(id) {
				return fmt.Errorf("%w: %s's child %s does not point back to it", ErrCorrupt, id, cid)
			}
		}
		if n.bookmarked != w.bookmarked.Contains(id) {
			return fmt.Errorf("%w: %s's bookmarked flag disagrees with the bookmarked set", ErrCorrupt, id)
		}
		if n.active != w.active.Contains(id) {
			return fmt.Errorf("%w: %s's active flag disagrees with the active set", ErrCorrupt, id)
		}
	}
	for _, rid := range w.roots.Ids() {
		if _, ok := w.nodes[rid]; !ok {
			return fmt.Errorf("%w: roots set references nonexistent node %s", ErrCorrupt, rid)
		}
	}

	for id, n := range w.nodes {
		if !n.active {
			continue
		}
		if n.parents.Len() > 0 {
			anyActiveParent := false
			for _, pid := range n.parents.Ids() {
				if p, ok := w.nodes[pid]; ok && p.active {
					anyActiveParent = true
					break
				}
			}
			if !anyActiveParent {
				return fmt.Errorf("%w: active internal node %s has no active parent", ErrCorrupt, id)
			}
		}
		activeChildren := 0
		for _, cid := range n.children.Ids() {
			if c, ok := w.nodes[cid]; ok && c.active {
				activeChildren++
			}
		}
		if activeChildren > 1 {
			return fmt.Errorf("%w: active node %s has more than one active child", ErrCorrupt, id)
		}
	}

	visited := make(map[Id]bool, len(w.nodes))
	onStack := make(map[Id]bool, len(w.nodes))
	for id := range w.nodes {
		if err := verifyDagAcyclic(w, id, visited, onStack); err != nil {
			return err
		}
	}
	return nil
}

func verifyDagAcyclic[T Content[T]](w *DagWeave[T], id Id, visited, onStack map[Id]bool) error {
	if onStack[id] {
		return fmt.Errorf("%w: %s is part of a cycle", ErrCorrupt, id)
	}
	if visited[id] {
		return nil
	}
	visited[id] = true
	onStack[id] = true
	n, ok := w.nodes[id]
	if ok {
		for _, cid := range n.children.Ids() {
			if err := verifyDagAcyclic(w, cid, visited, onStack); err != nil {
				return err
			}
		}
	}
	onStack[id] = false
	return nil
}

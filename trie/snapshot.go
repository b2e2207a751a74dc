package trie

import "eleve/token"

// Snapshot is a serializable, gob-friendly capture of a Trie's counts.
// Entropy and normalization are derived state and are deliberately not
// part of the snapshot: Restore marks the trie dirty so the first
// subsequent query rebuilds them, which keeps the on-disk format small
// and avoids ever persisting stale statistics.
type Snapshot struct {
	MaxDepth int
	Root     SnapNode
}

// SnapNode is one node of a Snapshot.
type SnapNode struct {
	Count    int64
	Children map[token.Token]SnapNode
}

func snapshotNode(n *node) SnapNode {
	sn := SnapNode{Count: n.count}
	if n.numChildren() > 0 {
		sn.Children = make(map[token.Token]SnapNode, n.numChildren())
		n.forEachChild(func(tok token.Token, c *node) {
			sn.Children[tok] = snapshotNode(c)
		})
	}
	return sn
}

// Snapshot captures the trie's counts (not its derived statistics).
func (t *Trie) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		MaxDepth: t.maxDepth,
		Root:     snapshotNode(t.root),
	}
}

func restoreNode(sn SnapNode) *node {
	n := newNode()
	n.count = sn.Count
	for tok, child := range sn.Children {
		n.setChild(tok, restoreNode(child))
	}
	return n
}

// Restore replaces the trie's contents with a previously captured
// Snapshot. The trie is marked dirty: entropy and normalization are
// recomputed lazily on the next query.
func (t *Trie) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = restoreNode(snap.Root)
	t.maxDepth = snap.MaxDepth
	t.normalization = nil
	t.dirty = true
}

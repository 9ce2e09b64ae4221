package completion

import "math"

// Terminator is the rune stored in the node that closes every inserted string.
// Items containing it cannot be stored.
const Terminator rune = 0

// Node is a single character of the prefix tree. A node whose char is the
// Terminator marks the end of a stored string and carries its weight.
type Node struct {
	char     rune
	weight   uint
	children []*Node
}

// Char returns the rune this node stands for.
func (n *Node) Char() rune { return n.char }

// Weight returns the accrued weight. Only meaningful on terminator nodes.
func (n *Node) Weight() uint { return n.weight }

// IsTerminator reports whether a complete string ends at this node.
func (n *Node) IsTerminator() bool { return n.char == Terminator }

// ChildrenCount returns the number of direct children.
func (n *Node) ChildrenCount() int { return len(n.children) }

// FirstChild returns the first child or nil for a leaf.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// ChildAt returns the child at index i or nil when out of range.
func (n *Node) ChildAt(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Find does a linear scan of the children for ch.
func (n *Node) Find(ch rune) *Node {
	for _, c := range n.children {
		if c.char == ch {
			return c
		}
	}
	return nil
}

// Insert returns the child for ch, creating it when missing. Sorted inserts
// keep siblings in ascending rune order, otherwise the child is appended.
// Every call confirms the child once, so repeated inserts raise its weight.
func (n *Node) Insert(ch rune, sorted bool) *Node {
	child := n.Find(ch)
	if child == nil {
		child = &Node{char: ch}
		if sorted {
			i := 0
			for i < len(n.children) && ch > n.children[i].char {
				i++
			}
			n.children = append(n.children, nil)
			copy(n.children[i+1:], n.children[i:])
			n.children[i] = child
		} else {
			n.children = append(n.children, child)
		}
	}
	child.confirm(1)
	return child
}

// confirm adds w, saturating at the largest weight.
func (n *Node) confirm(w uint) {
	if n.weight > math.MaxUint-w {
		n.weight = math.MaxUint
		return
	}
	n.weight += w
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// Remove deletes str from the subtree rooted at n. The walk records every node
// on the path and then prunes backwards, stopping at the first node that is
// still shared with another string. Unknown strings leave the tree unchanged.
func (n *Node) Remove(str string) {
	runes := append([]rune(str), Terminator)

	path := make([]*Node, 1, len(runes)+1)
	path[0] = n

	parent := n
	for _, ch := range runes {
		child := parent.Find(ch)
		if child == nil {
			break
		}
		path = append(path, child)
		parent = child
	}

	// only a path ending on the terminator is a stored string
	if len(path) != len(runes)+1 {
		return
	}

	for i := len(path) - 1; i >= 1; i-- {
		child := path[i]
		if len(child.children) != 0 {
			break
		}
		path[i-1].removeChild(child)
	}
}

// Trie owns the whole node graph through its root.
type Trie struct {
	root *Node
}

// NewTrie returns an empty prefix tree.
func NewTrie() *Trie {
	return &Trie{root: &Node{}}
}

// Root returns the entry point of the tree. The root carries no character.
func (t *Trie) Root() *Node { return t.root }

// IsEmpty reports whether nothing is stored.
func (t *Trie) IsEmpty() bool { return len(t.root.children) == 0 }

// Add inserts item below the root followed by a terminator and returns the
// terminator node. extra is added to every node on the path on top of the
// implicit confirmation done by Insert.
func (t *Trie) Add(item string, sorted bool, extra uint) *Node {
	node := t.root
	for _, ch := range item {
		node = node.Insert(ch, sorted)
		node.confirm(extra)
	}
	// the terminator always sorts first among its siblings
	node = node.Insert(Terminator, true)
	node.confirm(extra)
	return node
}

// Remove deletes item from the tree.
func (t *Trie) Remove(item string) {
	t.root.Remove(item)
}

// Walk follows s from the root. It returns nil when some rune of s is absent.
func (t *Trie) Walk(s string) *Node {
	node := t.root
	for _, ch := range s {
		node = node.Find(ch)
		if node == nil {
			return nil
		}
	}
	return node
}

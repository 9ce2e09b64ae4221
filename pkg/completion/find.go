package completion

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/tabserve/internal/utils"
)

// findCompletion walks s and extends it while the continuation is
// unambiguous. At a branch point Auto mode keeps going down the best child,
// other modes stop there.
func (c *Completion) findCompletion(s string) (string, bool) {
	if strings.ContainsRune(s, Terminator) || !utf8.ValidString(s) {
		return "", false
	}

	var b strings.Builder
	node := c.trie.Root()
	for _, ch := range s {
		node = node.Find(ch)
		if node == nil {
			return "", false
		}
		b.WriteRune(ch)
	}

	// longest common extension
	for node.ChildrenCount() == 1 {
		node = node.FirstChild()
		if !node.IsTerminator() {
			b.WriteRune(node.Char())
		}
	}

	if node.ChildrenCount() > 1 {
		c.sess.multiple = true

		if c.opts.Mode != ModeAuto {
			c.beep(EventPartialMatch)
		} else if c.opts.Order != Weighted {
			for {
				node = node.FirstChild()
				if node == nil || node.IsTerminator() {
					break
				}
				b.WriteRune(node.Char())
			}
		} else {
			for {
				hit := bestChild(node)
				// the terminator wins ties, a complete item beats a longer one
				if hit.IsTerminator() {
					break
				}
				node = hit
				b.WriteRune(node.Char())
			}
		}
	}

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// bestChild returns the child with the highest weight, the earliest on ties.
func bestChild(node *Node) *Node {
	hit := node.FirstChild()
	for i := 1; i < node.ChildrenCount(); i++ {
		if child := node.ChildAt(i); child.Weight() > hit.Weight() {
			hit = child
		}
	}
	return hit
}

// findAllCompletions collects every item starting with s into matches and
// reports whether there was more than one.
func (c *Completion) findAllCompletions(s string, matches *Matches) bool {
	if s == "" || strings.ContainsRune(s, Terminator) || !utf8.ValidString(s) {
		return false
	}

	if c.opts.IgnoreCase {
		c.extractCI(c.trie.Root(), "", []rune(s), matches)
		return matches.Count() > 1
	}

	node := c.trie.Walk(s)
	if node == nil {
		return false
	}

	var b strings.Builder
	b.WriteString(s)
	for node.ChildrenCount() == 1 {
		node = node.FirstChild()
		if !node.IsTerminator() {
			b.WriteRune(node.Char())
		}
	}

	if node.ChildrenCount() == 0 {
		matches.Append(node.Weight(), b.String())
		return false
	}
	c.extract(node, b.String(), matches, false)
	return true
}

// extract appends every item below node to matches, each prefixed with
// beginning. Single-child chains are followed in place; branch points recurse.
func (c *Completion) extract(node *Node, beginning string, matches *Matches, addWeight bool) {
	for _, cur := range node.children {
		var b strings.Builder
		b.WriteString(beginning)

		n := cur
		if !n.IsTerminator() {
			b.WriteRune(n.Char())
		}
		for n.ChildrenCount() == 1 {
			n = n.FirstChild()
			if n.IsTerminator() {
				break
			}
			b.WriteRune(n.Char())
		}

		if n.IsTerminator() {
			text := b.String()
			if addWeight {
				text += ":" + strconv.FormatUint(uint64(n.Weight()), 10)
			}
			matches.Append(n.Weight(), text)
		}

		if n.ChildrenCount() > 1 {
			c.extract(n, b.String(), matches, addWeight)
		}
	}
}

// extractCI matches rest against the tree trying both cases of each letter.
// The collected text uses the stored runes, not the queried ones.
func (c *Completion) extractCI(node *Node, beginning string, rest []rune, matches *Matches) {
	if len(rest) == 0 {
		c.extract(node, beginning, matches, false)
		return
	}

	ch := rest[0]
	if child := node.Find(ch); child != nil {
		c.extractCI(child, beginning+string(child.Char()), rest[1:], matches)
	}
	if alt, ok := utils.ToggleCase(ch); ok {
		if child := node.Find(alt); child != nil {
			c.extractCI(child, beginning+string(child.Char()), rest[1:], matches)
		}
	}
}

func containsFold(s, substr string) bool {
	return utils.StringContainsIgnoreCase(s, substr)
}

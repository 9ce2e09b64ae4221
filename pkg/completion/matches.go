package completion

import (
	"sort"
)

// WeightedMatch is one completion candidate together with its weight.
type WeightedMatch struct {
	Text   string
	Weight uint
}

// Matches collects completion results. A sorted collection orders its
// entries by descending weight on retrieval; an unsorted one keeps the
// order in which they were appended.
type Matches struct {
	items   []WeightedMatch
	sorted  bool
	byText  bool
	ordered bool
}

// NewMatches returns an empty collection whose retrieval order follows order.
func NewMatches(order Order) *Matches {
	return &Matches{
		sorted: order == Weighted,
		byText: order == Sorted,
	}
}

// Append adds a match.
func (m *Matches) Append(weight uint, text string) {
	m.items = append(m.items, WeightedMatch{Text: text, Weight: weight})
	m.ordered = false
}

// Count returns the number of matches.
func (m *Matches) Count() int { return len(m.items) }

// IsEmpty reports whether there are no matches.
func (m *Matches) IsEmpty() bool { return len(m.items) == 0 }

// Sorting reports whether the collection ranks by weight.
func (m *Matches) Sorting() bool { return m.sorted }

// First returns the best match under the collection order.
func (m *Matches) First() (string, bool) {
	m.order()
	if len(m.items) == 0 {
		return "", false
	}
	return m.items[0].Text, true
}

// Last returns the worst match under the collection order.
func (m *Matches) Last() (string, bool) {
	m.order()
	if len(m.items) == 0 {
		return "", false
	}
	return m.items[len(m.items)-1].Text, true
}

// List returns the plain strings under the collection order.
func (m *Matches) List() []string {
	m.order()
	out := make([]string, len(m.items))
	for i, it := range m.items {
		out[i] = it.Text
	}
	return out
}

// Weighted returns a copy of the entries under the collection order.
func (m *Matches) Weighted() []WeightedMatch {
	m.order()
	out := make([]WeightedMatch, len(m.items))
	copy(out, m.items)
	return out
}

// RemoveDuplicates merges entries with identical text, keeping the first
// position and the maximum weight seen.
func (m *Matches) RemoveDuplicates() {
	seen := make(map[string]int, len(m.items))
	kept := m.items[:0]
	for _, it := range m.items {
		if idx, ok := seen[it.Text]; ok {
			if it.Weight > kept[idx].Weight {
				kept[idx].Weight = it.Weight
			}
			continue
		}
		seen[it.Text] = len(kept)
		kept = append(kept, it)
	}
	m.items = kept
	m.ordered = false
}

func (m *Matches) order() {
	if m.ordered {
		return
	}
	switch {
	case m.sorted:
		// higher weight first, ties keep trie order
		sort.SliceStable(m.items, func(i, j int) bool {
			return m.items[i].Weight > m.items[j].Weight
		})
	case m.byText:
		sort.SliceStable(m.items, func(i, j int) bool {
			return m.items[i].Text < m.items[j].Text
		})
	}
	m.ordered = true
}

func (m *Matches) setOrder(order Order) {
	m.sorted = order == Weighted
	m.byText = order == Sorted
	m.ordered = false
}

// Package dictionary loads candidate lists for completion sessions from
// plain text word lists.
package dictionary

import (
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Entry is one candidate of a list.
type Entry struct {
	Text   string
	Weight uint
	order  int
}

// List is an ordered candidate list without duplicates. Adding a text that
// is already present keeps the higher of both weights.
type List struct {
	index   *patricia.Trie
	entries []*Entry
}

// NewList returns an empty list.
func NewList() *List {
	return &List{index: patricia.NewTrie()}
}

// Add inserts text with weight, merging duplicates.
func (l *List) Add(text string, weight uint) {
	if text == "" {
		return
	}
	key := patricia.Prefix(text)
	if item := l.index.Get(key); item != nil {
		e := item.(*Entry)
		if weight > e.Weight {
			e.Weight = weight
		}
		return
	}

	e := &Entry{Text: text, Weight: weight, order: len(l.entries)}
	l.index.Insert(key, e)
	l.entries = append(l.entries, e)
}

// Merge adds every entry of other after the entries of l.
func (l *List) Merge(other *List) {
	for _, e := range other.entries {
		l.Add(e.Text, e.Weight)
	}
}

// Len returns the number of distinct entries.
func (l *List) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in first-seen order.
func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// Strings renders the list for completion.Completion.SetItems. Weighted
// output uses the "text:weight" form understood by AddWeightedItem.
func (l *List) Strings(weighted bool) []string {
	return render(l.Entries(), weighted)
}

// WithPrefix returns the entries starting with prefix in first-seen order.
func (l *List) WithPrefix(prefix string) []Entry {
	if prefix == "" {
		return l.Entries()
	}

	var out []Entry
	err := l.index.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		out = append(out, *item.(*Entry))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting list subtree: %v", err)
		return nil
	}

	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// Truncate keeps at most n entries. Non-positive n keeps everything.
func (l *List) Truncate(n int) {
	if n <= 0 || n >= len(l.entries) {
		return
	}
	for _, e := range l.entries[n:] {
		l.index.Delete(patricia.Prefix(e.Text))
	}
	l.entries = l.entries[:n]
}

func render(entries []Entry, weighted bool) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		if weighted {
			out[i] = e.Text + ":" + strconv.FormatUint(uint64(e.Weight), 10)
		} else {
			out[i] = e.Text
		}
	}
	return out
}

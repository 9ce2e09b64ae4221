// Package completion implements incremental text completion on top of a
// prefix tree. A Completion holds the candidate strings of one input field
// together with the state of the last query, so repeated queries can step
// through ambiguous matches.
package completion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// ErrSentinel is returned for items containing the Terminator rune.
var ErrSentinel = errors.New("item contains the terminator rune")

// ErrInvalidUTF8 is returned for items that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("item is not valid UTF-8")

// Options is the configuration of a Completion. It is copied on construction.
type Options struct {
	Mode       Mode
	Order      Order
	IgnoreCase bool
	// Sounds gates the no-match, partial-match and rotation events.
	Sounds   bool
	Notifier Notifier
	// PostProcessMatch rewrites every single completion before it is returned.
	PostProcessMatch func(string) string
	// PostProcessMatches rewrites every match list before it is returned.
	PostProcessMatches func([]string) []string
	// PostProcessWeightedMatches edits every weighted match list in place
	// before it is returned.
	PostProcessWeightedMatches func(*Matches)
}

// Option changes the Options used by New.
type Option func(*Options)

// WithMode sets the completion mode.
func WithMode(m Mode) Option { return func(o *Options) { o.Mode = m } }

// WithOrder sets the insertion and retrieval order.
func WithOrder(ord Order) Option { return func(o *Options) { o.Order = ord } }

// WithIgnoreCase enables case-insensitive match lists.
func WithIgnoreCase(ignore bool) Option { return func(o *Options) { o.IgnoreCase = ignore } }

// WithSounds enables or disables user notification events.
func WithSounds(enabled bool) Option { return func(o *Options) { o.Sounds = enabled } }

// WithNotifier installs the receiver of completion events.
func WithNotifier(n Notifier) Option { return func(o *Options) { o.Notifier = n } }

// WithPostProcess installs the hooks applied to results before returning them.
// Either may be nil.
func WithPostProcess(match func(string) string, matches func([]string) []string) Option {
	return func(o *Options) {
		o.PostProcessMatch = match
		o.PostProcessMatches = matches
	}
}

// WithWeightedPostProcess installs the hook applied to weighted match lists.
func WithWeightedPostProcess(matches func(*Matches)) Option {
	return func(o *Options) { o.PostProcessWeightedMatches = matches }
}

// DefaultOptions mirrors the usual line edit setup: auto completion in
// insertion order with sounds on.
func DefaultOptions() Options {
	return Options{
		Mode:   ModeAuto,
		Order:  Insertion,
		Sounds: true,
	}
}

// session is the query state. Any change of the candidate set replaces it
// through invalidate.
type session struct {
	lastQuery    string
	hasQuery     bool
	currentMatch string
	lastMatch    string
	matches      *Matches
	rotation     int
	multiple     bool
}

// invalidate drops the cached matches and the last query, keeping only the
// match history.
func (s session) invalidate() session {
	return session{
		currentMatch: s.currentMatch,
		lastMatch:    s.lastMatch,
	}
}

// Result is the outcome of MakeCompletion.
type Result struct {
	// Text is the completion. Only valid when Found is set, and may be empty.
	Text  string
	Found bool
	// Multiple is set when the query ran into a branch point.
	Multiple bool
	// Matches holds every match for a repeated Shell query.
	Matches []string
}

// Completion is a completion engine for a single input field. It is not safe
// for concurrent use.
type Completion struct {
	opts Options
	trie *Trie
	sess session
}

// New creates an empty engine.
func New(opts ...Option) *Completion {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Completion{
		opts: o,
		trie: NewTrie(),
	}
}

// Options returns a copy of the current configuration.
func (c *Completion) Options() Options { return c.opts }

// Mode returns the completion mode.
func (c *Completion) Mode() Mode { return c.opts.Mode }

// SetMode changes the completion mode.
func (c *Completion) SetMode(m Mode) { c.opts.Mode = m }

// Order returns the insertion and retrieval order.
func (c *Completion) Order() Order { return c.opts.Order }

// SetOrder changes the order. Nodes already in the tree are not re-sorted:
// Sorted only affects children inserted afterwards, while list ranking
// follows the new order right away.
func (c *Completion) SetOrder(ord Order) {
	c.opts.Order = ord
	if c.sess.matches != nil {
		c.sess.matches.setOrder(ord)
	}
}

// IgnoreCase reports whether match lists are built case-insensitively.
func (c *Completion) IgnoreCase() bool { return c.opts.IgnoreCase }

// SetIgnoreCase toggles case-insensitive match lists.
func (c *Completion) SetIgnoreCase(ignore bool) { c.opts.IgnoreCase = ignore }

// SoundsEnabled reports whether user notification events are delivered.
func (c *Completion) SoundsEnabled() bool { return c.opts.Sounds }

// SetSoundsEnabled toggles user notification events.
func (c *Completion) SetSoundsEnabled(enabled bool) { c.opts.Sounds = enabled }

// SetNotifier replaces the event receiver.
func (c *Completion) SetNotifier(n Notifier) { c.opts.Notifier = n }

// HasMultipleMatches reports whether the last query ran into a branch point.
func (c *Completion) HasMultipleMatches() bool { return c.sess.multiple }

// CurrentMatch returns the most recent completion.
func (c *Completion) CurrentMatch() string { return c.sess.currentMatch }

// LastMatch returns the completion before CurrentMatch.
func (c *Completion) LastMatch() string { return c.sess.lastMatch }

// LastQuery returns the string passed to the last MakeCompletion.
func (c *Completion) LastQuery() string { return c.sess.lastQuery }

// IsEmpty reports whether there are no candidates.
func (c *Completion) IsEmpty() bool { return c.trie.IsEmpty() }

// AddItem inserts item. Empty items are ignored. In Weighted order a weight
// above one is added to the implicit weight of the insertion.
func (c *Completion) AddItem(item string, weight uint) error {
	if item == "" {
		return nil
	}
	if strings.ContainsRune(item, Terminator) {
		log.Warnf("Rejected item with terminator rune: %q", item)
		return fmt.Errorf("%w: %q", ErrSentinel, item)
	}
	if !utf8.ValidString(item) {
		log.Warnf("Rejected item with invalid UTF-8: %q", item)
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, item)
	}

	c.sess = c.sess.invalidate()

	var extra uint
	if c.opts.Order == Weighted && weight > 1 {
		extra = weight - 1
	}
	c.trie.Add(item, c.opts.Order == Sorted, extra)
	return nil
}

// AddWeightedItem inserts an item written as "text:weight". The weight is
// taken after the last colon past the first rune and defaults to 0 when it
// does not parse. Outside Weighted order the item is added verbatim.
func (c *Completion) AddWeightedItem(item string) error {
	if c.opts.Order != Weighted {
		return c.AddItem(item, 0)
	}

	text := item
	var weight uint
	if idx := strings.LastIndexByte(item, ':'); idx > 0 {
		if w, err := strconv.ParseUint(item[idx+1:], 10, 0); err == nil {
			weight = uint(w)
		}
		text = item[:idx]
	}
	return c.AddItem(text, weight)
}

// InsertItems adds every item of list. In Weighted order the items are
// parsed with AddWeightedItem. Rejected items are reported together.
func (c *Completion) InsertItems(list []string) error {
	var errs []error
	for _, item := range list {
		var err error
		if c.opts.Order == Weighted {
			err = c.AddWeightedItem(item)
		} else {
			err = c.AddItem(item, 0)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetItems replaces all candidates with list.
func (c *Completion) SetItems(list []string) error {
	c.Clear()
	return c.InsertItems(list)
}

// RemoveItem deletes item. Unknown items are ignored.
func (c *Completion) RemoveItem(item string) {
	if !utf8.ValidString(item) {
		return
	}
	c.sess = c.sess.invalidate()
	c.trie.Remove(item)
}

// Clear drops every candidate.
func (c *Completion) Clear() {
	c.sess = c.sess.invalidate()
	c.trie = NewTrie()
	log.Debug("Cleared completion items")
}

// Items returns every stored string in tree order. In Weighted order each
// item carries its weight as "text:weight" so SetItems can restore it.
func (c *Completion) Items() []string {
	list := NewMatches(Insertion)
	c.extract(c.trie.Root(), "", list, c.opts.Order == Weighted)
	return list.List()
}

// Weight returns the accrued weight of a stored item.
func (c *Completion) Weight(item string) (uint, bool) {
	if item == "" || strings.ContainsRune(item, Terminator) || !utf8.ValidString(item) {
		return 0, false
	}
	node := c.trie.Walk(item)
	if node == nil {
		return 0, false
	}
	term := node.Find(Terminator)
	if term == nil {
		return 0, false
	}
	return term.Weight(), true
}

// MakeCompletion completes s according to the mode and updates the session.
func (c *Completion) MakeCompletion(s string) Result {
	if c.opts.Mode == ModeNone {
		return Result{}
	}

	c.sess.matches = nil
	c.sess.rotation = 0
	c.sess.multiple = false
	c.sess.lastMatch = c.sess.currentMatch

	// a repeated query in Shell mode lists everything
	if c.opts.Mode == ModeShell && c.sess.hasQuery && s == c.sess.lastQuery {
		matches := NewMatches(c.opts.Order)
		c.sess.multiple = c.findAllCompletions(s, matches)
		c.sess.matches = matches
		c.sess.currentMatch = ""

		list := c.postProcessMatches(matches.List())
		c.emit(Event{Kind: EventMatches, Matches: list})
		if len(list) == 0 {
			c.beep(EventNoMatch)
		}
		return Result{Multiple: c.sess.multiple, Matches: list}
	}

	var text string
	var found bool
	if c.opts.Mode == ModePopup || c.opts.Mode == ModePopupAuto {
		matches := NewMatches(c.opts.Order)
		c.sess.multiple = c.findAllCompletions(s, matches)
		c.sess.matches = matches
		text, found = matches.First()
	} else {
		text, found = c.findCompletion(s)
	}

	if c.sess.multiple {
		c.emit(Event{Kind: EventMultipleMatches})
	}

	c.sess.lastQuery = s
	c.sess.hasQuery = true
	c.sess.currentMatch = text

	if !found {
		log.Debugf("No completion for %q", s)
		c.beep(EventNoMatch)
		return Result{Multiple: c.sess.multiple}
	}
	return Result{Text: c.postProcessMatch(text), Found: true, Multiple: c.sess.multiple}
}

// NextMatch steps forward through the matches of the last query, wrapping
// around at the end.
func (c *Completion) NextMatch() (string, bool) {
	return c.step(1)
}

// PreviousMatch steps backward through the matches of the last query,
// wrapping around at the start.
func (c *Completion) PreviousMatch() (string, bool) {
	return c.step(-1)
}

func (c *Completion) step(dir int) (string, bool) {
	c.sess.lastMatch = c.sess.currentMatch

	if c.sess.matches == nil || c.sess.matches.IsEmpty() {
		matches := NewMatches(c.opts.Order)
		c.sess.multiple = c.findAllCompletions(c.sess.lastQuery, matches)
		c.sess.matches = matches
		c.sess.rotation = 0

		list := matches.List()
		if len(list) == 0 {
			c.sess.currentMatch = ""
			c.beep(EventNoMatch)
			return "", false
		}
		if dir < 0 {
			c.sess.rotation = len(list) - 1
		}
		c.sess.currentMatch = list[c.sess.rotation]
		return c.postProcessMatch(c.sess.currentMatch), true
	}

	list := c.sess.matches.List()
	idx := c.sess.rotation + dir
	switch {
	case idx >= len(list):
		idx = 0
		c.beep(EventRotation)
	case idx < 0:
		idx = len(list) - 1
		c.beep(EventRotation)
	}
	c.sess.rotation = idx
	c.sess.currentMatch = list[idx]
	return c.postProcessMatch(c.sess.currentMatch), true
}

// AllMatches lists every match of the last query without touching the
// rotation state.
func (c *Completion) AllMatches() []string {
	return c.AllMatchesFor(c.sess.lastQuery)
}

// AllMatchesFor lists every match of s without touching the rotation state.
func (c *Completion) AllMatchesFor(s string) []string {
	matches := NewMatches(c.opts.Order)
	c.findAllCompletions(s, matches)
	return c.postProcessMatches(matches.List())
}

// AllWeightedMatches is AllMatches with weights.
func (c *Completion) AllWeightedMatches() *Matches {
	return c.AllWeightedMatchesFor(c.sess.lastQuery)
}

// AllWeightedMatchesFor is AllMatchesFor with weights. The weighted hook is
// applied instead of PostProcessMatches.
func (c *Completion) AllWeightedMatchesFor(s string) *Matches {
	matches := NewMatches(c.opts.Order)
	c.findAllCompletions(s, matches)
	if c.opts.PostProcessWeightedMatches != nil {
		c.opts.PostProcessWeightedMatches(matches)
	}
	return matches
}

// SubstringCompletion returns every item containing s, ignoring case. An
// empty s returns all items. The mode is not consulted.
func (c *Completion) SubstringCompletion(s string) []string {
	all := NewMatches(c.opts.Order)
	c.extract(c.trie.Root(), "", all, false)
	list := all.List()

	if len(list) == 0 {
		c.beep(EventNoMatch)
		return list
	}
	if s == "" {
		return c.postProcessMatches(list)
	}

	var matches []string
	for _, item := range list {
		if containsFold(item, s) {
			matches = append(matches, c.postProcessMatch(item))
		}
	}
	if len(matches) == 0 {
		c.beep(EventNoMatch)
	}
	return matches
}

func (c *Completion) postProcessMatch(s string) string {
	if c.opts.PostProcessMatch == nil {
		return s
	}
	return c.opts.PostProcessMatch(s)
}

func (c *Completion) postProcessMatches(list []string) []string {
	if c.opts.PostProcessMatches == nil {
		return list
	}
	return c.opts.PostProcessMatches(list)
}

func (c *Completion) emit(ev Event) {
	if c.opts.Notifier == nil {
		return
	}
	ev.Mode = c.opts.Mode
	c.opts.Notifier.Notify(ev)
}

// beep emits the events meant to be audible.
func (c *Completion) beep(kind EventKind) {
	if !c.opts.Sounds {
		return
	}
	c.emit(Event{Kind: kind})
}

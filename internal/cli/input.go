// Package cli is an interactive shell around a single completion engine,
// useful for trying modes and orders by hand.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/tabserve/internal/utils"
	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const helpText = `plain text runs a completion, commands start with ':'
  :next  :prev            rotate through the matches
  :all [text]             list every match
  :sub text               list items containing text
  :add text [weight]      add an item
  :rm text                remove an item
  :items  :clear          list or drop every item
  :mode m  :order o       none|auto|manual|shell|popup|popup-auto, insertion|sorted|weighted
  :case on|off            case-insensitive matching
  :save name  :load name  use the list store
  :help  :quit`

// InputHandler reads lines from an input and drives a completion engine.
type InputHandler struct {
	engine      *completion.Completion
	store       *store.Store
	in          io.Reader
	out         io.Writer
	showWeights bool
	maxListed   int

	events []completion.Event

	matchStyle lipgloss.Style
	dimStyle   lipgloss.Style
	eventStyle lipgloss.Style
	errStyle   lipgloss.Style
}

// NewInputHandler creates a handler for engine. st may be nil.
func NewInputHandler(engine *completion.Completion, st *store.Store, in io.Reader, out io.Writer, showWeights bool, maxListed int) *InputHandler {
	r := lipgloss.NewRenderer(out)
	h := &InputHandler{
		engine:      engine,
		store:       st,
		in:          in,
		out:         out,
		showWeights: showWeights,
		maxListed:   maxListed,
		matchStyle:  r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"}),
		dimStyle:    r.NewStyle().Faint(true),
		eventStyle:  r.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#907aa9", Dark: "#c4a7e7"}),
		errStyle:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#b4637a", Dark: "#eb6f92"}),
	}
	engine.SetNotifier(completion.NotifierFunc(func(ev completion.Event) {
		h.events = append(h.events, ev)
	}))
	return h
}

// Start runs the loop until the input ends, :quit is read or ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	h.println(fmt.Sprintf("tabserve CLI [%s, %s] :help for commands", h.engine.Mode(), h.engine.Order()))
	scanner := bufio.NewScanner(h.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(h.out)
			return scanner.Err()
		}
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == ":quit" || line == ":q" {
			return nil
		}
		h.handleInput(line)
	}
}

// handleInput runs a single line.
func (h *InputHandler) handleInput(line string) {
	h.events = nil
	defer h.printEvents()

	if !strings.HasPrefix(line, ":") {
		h.complete(line)
		return
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "next", "n":
		h.printMatch(h.engine.NextMatch())
	case "prev", "p":
		h.printMatch(h.engine.PreviousMatch())
	case "all", "a":
		if arg == "" {
			h.printList(h.engine.AllWeightedMatches())
		} else {
			h.printList(h.engine.AllWeightedMatchesFor(arg))
		}
	case "sub", "s":
		h.printStrings(h.engine.SubstringCompletion(arg))
	case "add":
		h.add(arg)
	case "rm":
		h.engine.RemoveItem(arg)
	case "items":
		h.printStrings(h.engine.Items())
	case "clear":
		h.engine.Clear()
	case "mode":
		mode, err := completion.ParseMode(arg)
		if err != nil {
			h.printErr(err)
			return
		}
		h.engine.SetMode(mode)
	case "order":
		order, err := completion.ParseOrder(arg)
		if err != nil {
			h.printErr(err)
			return
		}
		h.engine.SetOrder(order)
	case "case":
		h.engine.SetIgnoreCase(arg == "on")
	case "save":
		h.save(arg)
	case "load":
		h.load(arg)
	case "help", "h":
		h.println(helpText)
	default:
		h.printErr(fmt.Errorf("unknown command :%s", cmd))
	}
}

func (h *InputHandler) complete(text string) {
	start := time.Now()
	r := h.engine.MakeCompletion(text)
	log.Debugf("Took [ %v ] for %q", time.Since(start), text)

	if r.Matches != nil {
		h.printStrings(r.Matches)
		return
	}
	if !r.Found {
		h.println(h.dimStyle.Render("(no match)"))
		return
	}
	h.println(h.matchStyle.Render(r.Text))
}

func (h *InputHandler) add(arg string) {
	text := arg
	var weight uint
	if idx := strings.LastIndexByte(arg, ' '); idx > 0 {
		if w, err := strconv.ParseUint(arg[idx+1:], 10, 0); err == nil {
			text, weight = arg[:idx], uint(w)
		}
	}
	if err := h.engine.AddItem(text, weight); err != nil {
		h.printErr(err)
	}
}

func (h *InputHandler) save(name string) {
	if h.store == nil {
		h.printErr(fmt.Errorf("list store is disabled"))
		return
	}
	err := h.store.Save(context.Background(), store.List{
		Name:    name,
		Order:   h.engine.Order().String(),
		Entries: h.engine.Items(),
	})
	if err != nil {
		h.printErr(err)
	}
}

func (h *InputHandler) load(name string) {
	if h.store == nil {
		h.printErr(fmt.Errorf("list store is disabled"))
		return
	}
	list, err := h.store.Load(context.Background(), name)
	if err != nil {
		h.printErr(err)
		return
	}
	if order, err := completion.ParseOrder(list.Order); err == nil {
		h.engine.SetOrder(order)
	}
	if err := h.engine.SetItems(list.Entries); err != nil {
		h.printErr(err)
	}
	h.println(fmt.Sprintf("loaded %s items", utils.FormatWithCommas(uint(len(list.Entries)))))
}

func (h *InputHandler) printMatch(match string, ok bool) {
	if !ok {
		h.println(h.dimStyle.Render("(no match)"))
		return
	}
	h.println(h.matchStyle.Render(match))
}

func (h *InputHandler) printList(matches *completion.Matches) {
	weighted := matches.Weighted()
	if len(weighted) == 0 {
		h.println(h.dimStyle.Render("(no match)"))
		return
	}
	for i, m := range weighted {
		if h.maxListed > 0 && i == h.maxListed {
			h.println(h.dimStyle.Render(fmt.Sprintf("... %d more", len(weighted)-i)))
			break
		}
		if h.showWeights {
			h.println(fmt.Sprintf("%2d. %-40s (weight: %8s)", i+1, h.matchStyle.Render(m.Text), utils.FormatWithCommas(m.Weight)))
		} else {
			h.println(fmt.Sprintf("%2d. %s", i+1, h.matchStyle.Render(m.Text)))
		}
	}
}

func (h *InputHandler) printStrings(list []string) {
	matches := completion.NewMatches(completion.Insertion)
	for _, s := range list {
		matches.Append(0, s)
	}
	showWeights := h.showWeights
	h.showWeights = false
	h.printList(matches)
	h.showWeights = showWeights
}

func (h *InputHandler) printEvents() {
	for _, ev := range h.events {
		h.println(h.eventStyle.Render("* " + ev.Kind.String()))
	}
}

func (h *InputHandler) printErr(err error) {
	h.println(h.errStyle.Render("error: " + err.Error()))
}

func (h *InputHandler) println(s string) {
	fmt.Fprintln(h.out, s)
}

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func run(t *testing.T, engine *completion.Completion, st *store.Store, input string) string {
	t.Helper()
	var out bytes.Buffer
	h := NewInputHandler(engine, st, strings.NewReader(input), &out, true, 2)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return out.String()
}

func TestCompletionLines(t *testing.T) {
	engine := completion.New(completion.WithMode(completion.ModePopup))
	engine.SetItems([]string{"kate", "kde", "konqueror"})

	out := run(t, engine, nil, "k\n:next\n:quit\nnever reached\n")
	if !strings.Contains(out, "kate") || !strings.Contains(out, "kde") {
		t.Errorf("Expected completion and rotation in output, got %q", out)
	}
	if !strings.Contains(out, "* multiple_matches") {
		t.Errorf("Expected events in output, got %q", out)
	}
	if strings.Contains(out, "never reached") {
		t.Errorf("Expected :quit to stop the loop")
	}
}

func TestCommands(t *testing.T) {
	engine := completion.New(completion.WithOrder(completion.Weighted))

	input := strings.Join([]string{
		":add alpha 5",
		":add alpine",
		":add beta",
		":all al",
		":rm beta",
		":items",
		":mode bogus",
		":case on",
		":unknown",
	}, "\n")
	out := run(t, engine, nil, input)

	if w, _ := engine.Weight("alpha"); w != 5 {
		t.Errorf("Expected alpha weight 5, got %d", w)
	}
	if !engine.IgnoreCase() {
		t.Errorf("Expected :case on to enable ignore case")
	}
	if len(engine.Items()) != 2 {
		t.Errorf("Expected beta removed, got %v", engine.Items())
	}
	for _, want := range []string{"(weight:", "unknown completion mode", "unknown command :unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got %q", want, out)
		}
	}
}

func TestMaxListed(t *testing.T) {
	engine := completion.New()
	engine.SetItems([]string{"a1", "a2", "a3", "a4"})

	out := run(t, engine, nil, ":sub a\n")
	if !strings.Contains(out, "... 2 more") {
		t.Errorf("Expected truncated listing, got %q", out)
	}
}

func TestSaveLoad(t *testing.T) {
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	src := completion.New()
	src.SetItems([]string{"x1", "x2"})
	run(t, src, st, ":save xs\n")

	dst := completion.New()
	out := run(t, dst, st, ":load xs\n:load missing\n")
	if len(dst.Items()) != 2 {
		t.Errorf("Expected loaded items, got %v", dst.Items())
	}
	if !strings.Contains(out, "loaded 2 items") || !strings.Contains(out, "list not found") {
		t.Errorf("Unexpected output %q", out)
	}

	out = run(t, completion.New(), nil, ":save xs\n")
	if !strings.Contains(out, "list store is disabled") {
		t.Errorf("Expected disabled store error, got %q", out)
	}
}

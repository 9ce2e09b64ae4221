package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list := List{Name: "shell", Order: "weighted", Entries: []string{"ls:4", "less:2", "cd:9"}}
	if err := s.Save(ctx, list); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, "shell")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(*loaded, list) {
		t.Errorf("Expected %+v, got %+v", list, *loaded)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Save(ctx, List{Name: "l", Order: "insertion", Entries: []string{"a", "b", "c"}})
	s.Save(ctx, List{Name: "l", Order: "sorted", Entries: []string{"z"}})

	loaded, err := s.Load(ctx, "l")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Order != "sorted" || !reflect.DeepEqual(loaded.Entries, []string{"z"}) {
		t.Errorf("Expected replaced list, got %+v", loaded)
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveEmptyName(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(context.Background(), List{}); err == nil {
		t.Errorf("Expected error for empty name")
	}
}

func TestNamesAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"urls", "cmds", "files"} {
		s.Save(ctx, List{Name: name, Order: "insertion", Entries: []string{name}})
	}
	names, err := s.Names(ctx)
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"cmds", "files", "urls"}) {
		t.Errorf("Unexpected names %v", names)
	}

	if err := s.Delete(ctx, "files"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, "files"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted list to be gone, got %v", err)
	}
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Expected deleting an unknown list to succeed, got %v", err)
	}
}

func TestWeightedRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db", "lists.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	c := completion.New(completion.WithOrder(completion.Weighted))
	c.InsertItems([]string{"kde:3", "kate:8"})
	c.AddItem("kde", 0)

	if err := s.Save(ctx, List{Name: "k", Order: c.Order().String(), Entries: c.Items()}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	order, _ := completion.ParseOrder(loaded.Order)
	restored := completion.New(completion.WithOrder(order))
	restored.SetItems(loaded.Entries)

	for item, expected := range map[string]uint{"kde": 4, "kate": 8} {
		if w, _ := restored.Weight(item); w != expected {
			t.Errorf("Expected %s weight %d, got %d", item, expected, w)
		}
	}
}

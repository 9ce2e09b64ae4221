package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/tabserve/pkg/config"
	"github.com/bastiangx/tabserve/pkg/dictionary"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func ptr[T any](v T) *T { return &v }

func newTestServer(t *testing.T, cfg *config.Config, words string) *Server {
	t.Helper()
	var dict *dictionary.List
	if words != "" {
		var err error
		dict, err = dictionary.Load(context.Background(), strings.NewReader(words))
		if err != nil {
			t.Fatalf("Failed to load dictionary: %v", err)
		}
	}
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewServer(cfg, dict, st, strings.NewReader(""), io.Discard)
}

func mustOK(t *testing.T, resp Response) Response {
	t.Helper()
	if resp.Status != StatusOK {
		t.Fatalf("Expected ok, got %s: %s", resp.Status, resp.Error)
	}
	return resp
}

func newSession(t *testing.T, s *Server, req Request) string {
	t.Helper()
	req.Action = ActionNewSession
	resp := mustOK(t, s.Handle(req))
	if resp.Session == "" {
		t.Fatalf("Expected a session id")
	}
	return resp.Session
}

func TestSessionSeededFromDictionary(t *testing.T) {
	s := newTestServer(t, nil, "kde:3\nkate:9\nkonqueror\n")
	id := newSession(t, s, Request{Order: ptr("weighted")})

	resp := mustOK(t, s.Handle(Request{ID: "1", Action: ActionComplete, Session: id, Text: "k"}))
	if resp.ID != "1" || resp.Match != "kate" || !resp.Found || !resp.Multiple {
		t.Errorf("Unexpected completion response: %+v", resp)
	}
	if !reflect.DeepEqual(resp.Events, []string{"multiple_matches"}) {
		t.Errorf("Expected multiple_matches event, got %v", resp.Events)
	}

	resp = mustOK(t, s.Handle(Request{Action: ActionAllMatches, Session: id, Text: "k"}))
	if !reflect.DeepEqual(resp.Matches, []string{"kate", "kde", "konqueror"}) {
		t.Errorf("Unexpected matches %v", resp.Matches)
	}
	if !reflect.DeepEqual(resp.Weights, []uint{9, 3, 1}) {
		t.Errorf("Unexpected weights %v", resp.Weights)
	}
}

func TestDictionaryPrefixFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dict.Prefix = "ka"
	s := newTestServer(t, cfg, "kde\nkate\nkalzium\n")
	id := newSession(t, s, Request{})

	resp := mustOK(t, s.Handle(Request{Action: ActionItems, Session: id}))
	if !reflect.DeepEqual(resp.Matches, []string{"kate", "kalzium"}) {
		t.Errorf("Expected only entries starting with ka, got %v", resp.Matches)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	s := newTestServer(t, nil, "")
	a := newSession(t, s, Request{})
	b := newSession(t, s, Request{Mode: ptr("popup")})

	mustOK(t, s.Handle(Request{Action: ActionAdd, Session: a, Text: "alpha"}))
	resp := mustOK(t, s.Handle(Request{Action: ActionComplete, Session: b, Text: "a"}))
	if resp.Found {
		t.Errorf("Expected session b to be empty, got %+v", resp)
	}
	if !reflect.DeepEqual(resp.Events, []string{"no_match"}) {
		t.Errorf("Expected no_match event, got %v", resp.Events)
	}

	resp = mustOK(t, s.Handle(Request{Action: ActionComplete, Session: a, Text: "a"}))
	if resp.Match != "alpha" {
		t.Errorf("Expected alpha, got %+v", resp)
	}
}

func TestRotationOverIPC(t *testing.T) {
	s := newTestServer(t, nil, "")
	id := newSession(t, s, Request{Mode: ptr("popup")})
	mustOK(t, s.Handle(Request{Action: ActionSetItems, Session: id, Items: []string{"aa", "ab", "ac"}}))
	mustOK(t, s.Handle(Request{Action: ActionComplete, Session: id, Text: "a"}))

	var got []string
	var events []string
	for i := 0; i < 3; i++ {
		resp := mustOK(t, s.Handle(Request{Action: ActionNext, Session: id}))
		got = append(got, resp.Match)
		events = append(events, resp.Events...)
	}
	if !reflect.DeepEqual(got, []string{"ab", "ac", "aa"}) {
		t.Errorf("Unexpected rotation %v", got)
	}
	if !reflect.DeepEqual(events, []string{"rotation"}) {
		t.Errorf("Expected a single rotation event, got %v", events)
	}

	resp := mustOK(t, s.Handle(Request{Action: ActionPrevious, Session: id}))
	if resp.Match != "ac" {
		t.Errorf("Expected previous to wrap to ac, got %s", resp.Match)
	}
}

func TestConfigureAndSubstring(t *testing.T) {
	s := newTestServer(t, nil, "")
	id := newSession(t, s, Request{})
	mustOK(t, s.Handle(Request{Action: ActionAddWeighted, Session: id, Items: []string{"Kate", "kde"}}))
	mustOK(t, s.Handle(Request{Action: ActionConfigure, Session: id, Mode: ptr("popup"), IgnoreCase: ptr(true)}))

	resp := mustOK(t, s.Handle(Request{Action: ActionAllMatches, Session: id, Text: "K"}))
	if len(resp.Matches) != 2 {
		t.Errorf("Expected case-insensitive matches, got %v", resp.Matches)
	}

	resp = mustOK(t, s.Handle(Request{Action: ActionSubstring, Session: id, Text: "AT"}))
	if !reflect.DeepEqual(resp.Matches, []string{"Kate"}) {
		t.Errorf("Unexpected substring matches %v", resp.Matches)
	}

	resp = s.Handle(Request{Action: ActionConfigure, Session: id, Order: ptr("random")})
	if resp.Status != StatusError {
		t.Errorf("Expected error for unknown order")
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := newTestServer(t, nil, "")
	id := newSession(t, s, Request{})
	mustOK(t, s.Handle(Request{Action: ActionSetItems, Session: id, Items: []string{"one", "two", "three"}}))
	mustOK(t, s.Handle(Request{Action: ActionRemove, Session: id, Text: "two"}))

	resp := mustOK(t, s.Handle(Request{Action: ActionItems, Session: id}))
	if !reflect.DeepEqual(resp.Matches, []string{"one", "three"}) {
		t.Errorf("Unexpected items %v", resp.Matches)
	}

	mustOK(t, s.Handle(Request{Action: ActionClear, Session: id}))
	resp = mustOK(t, s.Handle(Request{Action: ActionItems, Session: id}))
	if len(resp.Matches) != 0 {
		t.Errorf("Expected no items after clear, got %v", resp.Matches)
	}
}

func TestSaveAndLoadList(t *testing.T) {
	s := newTestServer(t, nil, "")
	src := newSession(t, s, Request{Order: ptr("weighted")})
	mustOK(t, s.Handle(Request{Action: ActionAddWeighted, Session: src, Items: []string{"ls:4", "less:7"}}))
	mustOK(t, s.Handle(Request{Action: ActionSave, Session: src, Name: "cmds"}))

	dst := newSession(t, s, Request{})
	mustOK(t, s.Handle(Request{Action: ActionLoad, Session: dst, Name: "cmds"}))
	resp := mustOK(t, s.Handle(Request{Action: ActionItems, Session: dst}))
	if !reflect.DeepEqual(resp.Matches, []string{"ls", "less"}) {
		t.Errorf("Expected weights stripped in insertion order, got %v", resp.Matches)
	}

	resp = mustOK(t, s.Handle(Request{Action: ActionLists}))
	if !reflect.DeepEqual(resp.Matches, []string{"cmds"}) {
		t.Errorf("Unexpected list names %v", resp.Matches)
	}

	resp = s.Handle(Request{Action: ActionLoad, Session: dst, Name: "missing"})
	if resp.Status != StatusError {
		t.Errorf("Expected error for missing list")
	}
}

func TestLoadPlainListIntoWeightedSession(t *testing.T) {
	s := newTestServer(t, nil, "")
	entries := []string{"http://kde.org", "key:value", "port:8080"}

	src := newSession(t, s, Request{})
	mustOK(t, s.Handle(Request{Action: ActionSetItems, Session: src, Items: entries}))
	mustOK(t, s.Handle(Request{Action: ActionSave, Session: src, Name: "plain"}))

	dst := newSession(t, s, Request{Order: ptr("weighted")})
	mustOK(t, s.Handle(Request{Action: ActionLoad, Session: dst, Name: "plain"}))

	resp := mustOK(t, s.Handle(Request{Action: ActionItems, Session: dst}))
	expected := []string{"http://kde.org:1", "key:value:1", "port:8080:1"}
	if !reflect.DeepEqual(resp.Matches, expected) {
		t.Errorf("Expected colons kept, got %v", resp.Matches)
	}

	resp = mustOK(t, s.Handle(Request{Action: ActionAllMatches, Session: dst, Text: "p"}))
	if !reflect.DeepEqual(resp.Matches, []string{"port:8080"}) {
		t.Errorf("Unexpected matches %v", resp.Matches)
	}
	if s.sessions.sessions[dst].engine.Order().String() != "weighted" {
		t.Errorf("Expected session order restored")
	}
}

func TestErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxQuery = 4
	cfg.Server.MaxSessions = 1
	cfg.Server.MaxItems = 2
	s := newTestServer(t, cfg, "")
	id := newSession(t, s, Request{})

	testCases := []struct {
		name string
		req  Request
	}{
		{"missing action", Request{Session: id}},
		{"unknown action", Request{Action: "dance", Session: id}},
		{"unknown session", Request{Action: ActionComplete, Session: "nope"}},
		{"query too long", Request{Action: ActionComplete, Session: id, Text: "abcde"}},
		{"too many items", Request{Action: ActionSetItems, Session: id, Items: []string{"a", "b", "c"}}},
		{"session limit", Request{Action: ActionNewSession}},
		{"terminator", Request{Action: ActionAdd, Session: id, Text: "a\x00b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.Handle(tc.req)
			if resp.Status != StatusError || resp.Error == "" {
				t.Errorf("Expected error response, got %+v", resp)
			}
		})
	}

	mustOK(t, s.Handle(Request{Action: ActionCloseSession, Session: id}))
	if resp := s.Handle(Request{Action: ActionCloseSession, Session: id}); resp.Status != StatusError {
		t.Errorf("Expected closing twice to fail")
	}
	if _, err := s.sessions.get(id); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestNoStore(t *testing.T) {
	s := NewServer(nil, nil, nil, strings.NewReader(""), io.Discard)
	id := newSession(t, s, Request{})
	resp := s.Handle(Request{Action: ActionSave, Session: id, Name: "x"})
	if resp.Status != StatusError || resp.Error != ErrNoStore.Error() {
		t.Errorf("Expected ErrNoStore, got %+v", resp)
	}
}

func TestServeStream(t *testing.T) {
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	enc.Encode(Request{ID: "a", Action: ActionHealth})
	enc.Encode("not a request")
	enc.Encode(Request{ID: "b", Action: ActionNewSession})
	enc.Encode(map[string]any{"id": "c", "action": "health", "extra": 1})

	var out bytes.Buffer
	s := NewServer(nil, nil, nil, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	dec := msgpack.NewDecoder(&out)
	var responses []Response
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			break
		}
		responses = append(responses, resp)
	}

	if len(responses) != 4 {
		t.Fatalf("Expected 4 responses, got %d", len(responses))
	}
	if responses[0].ID != "a" || responses[0].Status != StatusOK {
		t.Errorf("Unexpected health response %+v", responses[0])
	}
	if responses[1].Status != StatusError {
		t.Errorf("Expected malformed message to get an error, got %+v", responses[1])
	}
	if responses[2].Session == "" {
		t.Errorf("Expected new session id, got %+v", responses[2])
	}
	if responses[3].ID != "c" || responses[3].Sessions != 1 {
		t.Errorf("Unexpected health response %+v", responses[3])
	}
	if s.RequestCount() != 3 {
		t.Errorf("Expected 3 handled requests, got %d", s.RequestCount())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	s := NewServer(nil, nil, nil, r, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

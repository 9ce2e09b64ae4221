package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/bastiangx/tabserve/pkg/config"
	"github.com/bastiangx/tabserve/pkg/dictionary"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the msgpack IPC for completion sessions
type Server struct {
	cfg      *config.Config
	defaults []completion.Option
	entries  []dictionary.Entry
	store    *store.Store
	sessions *registry

	decoder *msgpack.Decoder
	encoder *msgpack.Encoder

	requestCount int
}

// NewServer creates a server reading requests from r and writing responses
// to w. dict seeds every new session and may be nil, so may st.
func NewServer(cfg *config.Config, dict *dictionary.List, st *store.Store, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var entries []dictionary.Entry
	if dict != nil {
		entries = dict.WithPrefix(cfg.Dict.Prefix)
		if max := cfg.Server.MaxItems; max > 0 && len(entries) > max {
			log.Warnf("Dictionary has %d entries, seeding sessions with the first %d", len(entries), max)
			entries = entries[:max]
		}
	}

	encoder := msgpack.NewEncoder(w)
	encoder.UseCompactInts(true)

	return &Server{
		cfg:      cfg,
		defaults: cfg.Options(),
		entries:  entries,
		store:    st,
		sessions: newRegistry(cfg.Server.MaxSessions),
		decoder:  msgpack.NewDecoder(r),
		encoder:  encoder,
	}
}

type incoming struct {
	raw msgpack.RawMessage
	err error
}

// Serve processes requests until the input ends or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	log.Debug("Starting server.")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan incoming)
	go func() {
		defer close(messages)
		for {
			raw, err := s.decoder.DecodeRaw()
			select {
			case messages <- incoming{raw: raw, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Server stopped.")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if msg.err != nil {
				if errors.Is(msg.err, io.EOF) {
					log.Debug("Client disconnected (EOF)")
					return nil
				}
				return fmt.Errorf("reading request: %w", msg.err)
			}
			if err := s.handleMessage(msg.raw); err != nil {
				return err
			}
		}
	}
}

// handleMessage decodes and answers a single message. Only write failures
// are returned.
func (s *Server) handleMessage(raw msgpack.RawMessage) error {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Errorf("Unmarshaling request: %v", err)
		return s.send(Response{Status: StatusError, Error: "invalid msgpack request"})
	}
	return s.send(s.Handle(req))
}

// Handle runs a single request and returns its response. It is not safe for
// concurrent use.
func (s *Server) Handle(req Request) Response {
	s.requestCount++
	start := time.Now()

	resp, err := s.dispatch(req)
	if err != nil {
		log.Debugf("Request %s (%s) failed: %v", req.ID, req.Action, err)
		resp = Response{Status: StatusError, Error: err.Error()}
	} else {
		resp.Status = StatusOK
	}
	resp.ID = req.ID
	resp.TimeTaken = time.Since(start).Microseconds()
	return resp
}

func (s *Server) send(resp Response) error {
	if err := s.encoder.Encode(&resp); err != nil {
		log.Errorf("Writing response: %v", err)
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// seedItems renders the dictionary for an engine with the given order.
func (s *Server) seedItems(order completion.Order) []string {
	items := make([]string, len(s.entries))
	for i, e := range s.entries {
		if order == completion.Weighted {
			items[i] = e.Text + ":" + strconv.FormatUint(uint64(e.Weight), 10)
		} else {
			items[i] = e.Text
		}
	}
	return items
}

// RequestCount returns how many requests were handled.
func (s *Server) RequestCount() int { return s.requestCount }

package server

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/log"
)

// ErrNoStore is returned by save, load and lists when no store is attached.
var ErrNoStore = errors.New("list store is disabled")

func (s *Server) dispatch(req Request) (Response, error) {
	switch req.Action {
	case ActionHealth:
		return Response{Sessions: s.sessions.count()}, nil
	case ActionNewSession:
		return s.handleNewSession(req)
	case ActionCloseSession:
		return Response{Session: req.Session}, s.sessions.remove(req.Session)
	case ActionLists:
		return s.handleLists()
	case "":
		return Response{}, errors.New("missing 'action' field")
	}

	sess, err := s.sessions.get(req.Session)
	if err != nil {
		return Response{}, err
	}
	sess.events = nil
	resp, err := s.handleSession(sess, req)
	resp.Session = sess.id
	resp.Events = sess.drainEvents()
	return resp, err
}

func (s *Server) handleSession(sess *session, req Request) (Response, error) {
	engine := sess.engine

	switch req.Action {
	case ActionConfigure:
		return Response{}, applySettings(engine, req)

	case ActionAdd:
		return Response{}, engine.AddItem(req.Text, req.Weight)

	case ActionAddWeighted:
		list := req.Items
		if req.Text != "" {
			list = append([]string{req.Text}, list...)
		}
		if err := s.checkCapacity(engine, len(list)); err != nil {
			return Response{}, err
		}
		var errs []error
		for _, item := range list {
			if err := engine.AddWeightedItem(item); err != nil {
				errs = append(errs, err)
			}
		}
		return Response{}, errors.Join(errs...)

	case ActionRemove:
		engine.RemoveItem(req.Text)
		return Response{}, nil

	case ActionClear:
		engine.Clear()
		return Response{}, nil

	case ActionSetItems:
		if max := s.cfg.Server.MaxItems; max > 0 && len(req.Items) > max {
			return Response{}, fmt.Errorf("%d items exceed the limit of %d", len(req.Items), max)
		}
		return Response{}, engine.SetItems(req.Items)

	case ActionItems:
		return Response{Matches: engine.Items()}, nil

	case ActionComplete:
		if err := s.checkQuery(req.Text); err != nil {
			return Response{}, err
		}
		r := engine.MakeCompletion(req.Text)
		return Response{Match: r.Text, Found: r.Found, Multiple: r.Multiple, Matches: r.Matches}, nil

	case ActionNext:
		match, ok := engine.NextMatch()
		return Response{Match: match, Found: ok}, nil

	case ActionPrevious:
		match, ok := engine.PreviousMatch()
		return Response{Match: match, Found: ok}, nil

	case ActionAllMatches:
		if err := s.checkQuery(req.Text); err != nil {
			return Response{}, err
		}
		query := req.Text
		if query == "" {
			query = engine.LastQuery()
		}
		if engine.Order() != completion.Weighted {
			return Response{Matches: engine.AllMatchesFor(query)}, nil
		}
		var resp Response
		for _, m := range engine.AllWeightedMatchesFor(query).Weighted() {
			resp.Matches = append(resp.Matches, m.Text)
			resp.Weights = append(resp.Weights, m.Weight)
		}
		return resp, nil

	case ActionSubstring:
		if err := s.checkQuery(req.Text); err != nil {
			return Response{}, err
		}
		return Response{Matches: engine.SubstringCompletion(req.Text)}, nil

	case ActionSave:
		return Response{}, s.saveList(engine, req.Name)

	case ActionLoad:
		return Response{}, s.loadList(engine, req.Name)
	}

	return Response{}, fmt.Errorf("unknown action: %s", req.Action)
}

func (s *Server) handleNewSession(req Request) (Response, error) {
	sess, err := s.sessions.create(s.defaults)
	if err != nil {
		return Response{}, err
	}
	if err := applySettings(sess.engine, req); err != nil {
		s.sessions.remove(sess.id)
		return Response{}, err
	}

	if len(s.entries) > 0 {
		if err := sess.engine.InsertItems(s.seedItems(sess.engine.Order())); err != nil {
			log.Warnf("Some dictionary entries were rejected: %v", err)
		}
	}
	log.Debugf("Created session %s (%s, %s)", sess.id, sess.engine.Mode(), sess.engine.Order())
	return Response{Session: sess.id}, nil
}

func (s *Server) handleLists() (Response, error) {
	if s.store == nil {
		return Response{}, ErrNoStore
	}
	names, err := s.store.Names(context.Background())
	return Response{Matches: names}, err
}

func (s *Server) saveList(engine *completion.Completion, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Save(context.Background(), store.List{
		Name:    name,
		Order:   engine.Order().String(),
		Entries: engine.Items(),
	})
}

// loadList replaces the items of engine with a stored list. The entries are
// inserted in the order they were saved with, so weighted entries keep their
// weights and plain entries keep their colons, then the session order is
// restored.
func (s *Server) loadList(engine *completion.Completion, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	list, err := s.store.Load(context.Background(), name)
	if err != nil {
		return err
	}
	stored, err := completion.ParseOrder(list.Order)
	if err != nil {
		return fmt.Errorf("list %s: %w", name, err)
	}
	if prev := engine.Order(); stored != prev {
		engine.SetOrder(stored)
		defer engine.SetOrder(prev)
	}
	return engine.SetItems(list.Entries)
}

// applySettings changes the settings named in req.
func applySettings(engine *completion.Completion, req Request) error {
	if req.Mode != nil {
		mode, err := completion.ParseMode(*req.Mode)
		if err != nil {
			return err
		}
		engine.SetMode(mode)
	}
	if req.Order != nil {
		order, err := completion.ParseOrder(*req.Order)
		if err != nil {
			return err
		}
		engine.SetOrder(order)
	}
	if req.IgnoreCase != nil {
		engine.SetIgnoreCase(*req.IgnoreCase)
	}
	if req.Sounds != nil {
		engine.SetSoundsEnabled(*req.Sounds)
	}
	return nil
}

func (s *Server) checkQuery(text string) error {
	if max := s.cfg.Server.MaxQuery; max > 0 && utf8.RuneCountInString(text) > max {
		return fmt.Errorf("query exceeds maximum length of %d characters", max)
	}
	return nil
}

func (s *Server) checkCapacity(engine *completion.Completion, adding int) error {
	max := s.cfg.Server.MaxItems
	if max <= 0 {
		return nil
	}
	if n := len(engine.Items()); n+adding > max {
		return fmt.Errorf("session holds %d items, limit is %d", n, max)
	}
	return nil
}

// Package firebasestore keeps lobbies in the Firebase Realtime Database under
// lobbies/{roomCode}, the layout mobile clients listen on directly.
//
// PurgeBefore queries by createdAt, so the database rules need
//
//	"lobbies": { ".indexOn": ["createdAt"] }
package firebasestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"firebase.google.com/go/v4/db"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
)

const lobbiesNode = "lobbies"

type Store struct {
	root *db.Ref
}

func New(client *db.Client) *Store {
	return &Store{root: client.NewRef(lobbiesNode)}
}

func (s *Store) ref(code string) *db.Ref {
	return s.root.Child(code)
}

func (s *Store) Create(ctx context.Context, l *model.Lobby) error {
	err := s.ref(l.RoomCode).Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var cur model.Lobby
		if err := tn.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if cur.RoomCode != "" {
			return nil, lobby.ErrLobbyExists
		}
		return l, nil
	})
	if err != nil {
		if errors.Is(err, lobby.ErrLobbyExists) {
			return err
		}
		return fmt.Errorf("create lobby: %w", err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	var v interface{}
	if err := s.ref(code).GetShallow(ctx, &v); err != nil {
		return false, fmt.Errorf("lobby exists: %w", err)
	}
	return v != nil, nil
}

func (s *Store) Get(ctx context.Context, code string) (*model.Lobby, error) {
	var l model.Lobby
	if err := s.ref(code).Get(ctx, &l); err != nil {
		return nil, fmt.Errorf("get lobby: %w", err)
	}
	if l.RoomCode == "" {
		return nil, lobby.ErrLobbyNotFound
	}
	normalize(&l)
	return &l, nil
}

// Update runs fn inside a database transaction, which may call it more than
// once when another writer races.
func (s *Store) Update(ctx context.Context, code string, fn lobby.UpdateFunc) (*model.Lobby, error) {
	var out *model.Lobby
	removed := false

	err := s.ref(code).Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		out, removed = nil, false

		var l model.Lobby
		if err := tn.Unmarshal(&l); err != nil {
			return nil, err
		}
		if l.RoomCode == "" {
			return nil, lobby.ErrLobbyNotFound
		}
		normalize(&l)

		if err := fn(&l); err != nil {
			if errors.Is(err, lobby.ErrRemove) {
				removed = true
				return nil, nil
			}
			return nil, err
		}
		out = &l
		return &l, nil
	})
	if err != nil {
		return nil, err
	}
	if removed {
		return nil, lobby.ErrRemove
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	if err := s.ref(code).Delete(ctx); err != nil {
		return fmt.Errorf("delete lobby: %w", err)
	}
	return nil
}

func (s *Store) PurgeBefore(ctx context.Context, t time.Time) ([]string, error) {
	var stale map[string]struct {
		CreatedAt int64 `json:"createdAt"`
	}
	q := s.root.OrderByChild("createdAt").EndAt(t.UnixMilli() - 1)
	if err := q.Get(ctx, &stale); err != nil {
		return nil, fmt.Errorf("query stale lobbies: %w", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	codes := make([]string, 0, len(stale))
	deletes := make(map[string]interface{}, len(stale))
	for code := range stale {
		codes = append(codes, code)
		deletes[code] = nil
	}
	sort.Strings(codes)

	if err := s.root.Update(ctx, deletes); err != nil {
		return nil, fmt.Errorf("delete stale lobbies: %w", err)
	}
	return codes, nil
}

// normalize restores the empty maps the database drops.
func normalize(l *model.Lobby) {
	if l.Members == nil {
		l.Members = map[string]model.LobbyMember{}
	}
	if l.Votes == nil {
		l.Votes = map[string]map[string]bool{}
	}
}

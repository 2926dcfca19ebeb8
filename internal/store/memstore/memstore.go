// Package memstore keeps lobbies in process memory. It backs single-instance
// deployments and tests.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
)

type Store struct {
	mu      sync.Mutex
	lobbies map[string]*model.Lobby
}

func New() *Store {
	return &Store{lobbies: make(map[string]*model.Lobby)}
}

func (s *Store) Create(_ context.Context, l *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lobbies[l.RoomCode]; ok {
		return lobby.ErrLobbyExists
	}
	s.lobbies[l.RoomCode] = l.Clone()
	return nil
}

func (s *Store) Exists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lobbies[code]
	return ok, nil
}

func (s *Store) Get(_ context.Context, code string) (*model.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[code]
	if !ok {
		return nil, lobby.ErrLobbyNotFound
	}
	return l.Clone(), nil
}

func (s *Store) Update(_ context.Context, code string, fn lobby.UpdateFunc) (*model.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.lobbies[code]
	if !ok {
		return nil, lobby.ErrLobbyNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, lobby.ErrRemove) {
			delete(s.lobbies, code)
		}
		return nil, err
	}
	s.lobbies[code] = next
	return next.Clone(), nil
}

func (s *Store) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lobbies, code)
	return nil
}

func (s *Store) PurgeBefore(_ context.Context, t time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := t.UnixMilli()
	var codes []string
	for code, l := range s.lobbies {
		if l.CreatedAt < cutoff {
			delete(s.lobbies, code)
			codes = append(codes, code)
		}
	}
	return codes, nil
}

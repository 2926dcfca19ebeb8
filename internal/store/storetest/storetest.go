// Package storetest holds the behavioral suite every lobby.Store must pass.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
)

// Sample returns a fully populated lobby created at createdAt.
func Sample(code string, createdAt time.Time) *model.Lobby {
	ts := createdAt.UnixMilli()
	return &model.Lobby{
		RoomCode:  code,
		HostID:    "host",
		CreatedBy: "host",
		CreatedAt: ts,
		Status:    model.StatusSwiping,
		Members: map[string]model.LobbyMember{
			"host":  {Username: "Host", Gender: "Other", JoinedAt: ts, Host: true},
			"guest": {Username: "Guest", Gender: "Female", JoinedAt: ts + 1},
		},
		Movies: []model.Movie{
			{ID: 550, Title: "Fight Club", PosterPath: "/p.jpg", VoteAverage: 8.4, ReleaseDate: "1999-10-15", GenreIDs: []int{18}},
			{ID: 13, Title: "Forrest Gump", GenreIDs: []int{35, 18}},
		},
		Votes:       map[string]map[string]bool{"550": {"host": true}},
		CurrentPage: 1,
		DeckPage:    1,
	}
}

var lobbyCmp = cmpopts.EquateEmpty()

// Run exercises newStore against the lobby.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) lobby.Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	t.Run("CreateGet", func(t *testing.T) {
		s := newStore(t)
		want := Sample("AAAAAA", now)
		require.NoError(t, s.Create(ctx, want))

		got, err := s.Get(ctx, "AAAAAA")
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, lobbyCmp); diff != "" {
			t.Errorf("lobby mismatch (-want +got):\n%s", diff)
		}

		ok, err := s.Exists(ctx, "AAAAAA")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("DUPDUP", now)))
		assert.ErrorIs(t, s.Create(ctx, Sample("DUPDUP", now)), lobby.ErrLobbyExists)
	})

	t.Run("Missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "NOPE00")
		assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)

		ok, err := s.Exists(ctx, "NOPE00")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Update(ctx, "NOPE00", func(*model.Lobby) error { return nil })
		assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("UPD000", now)))

		got, err := s.Update(ctx, "UPD000", func(l *model.Lobby) error {
			delete(l.Members, "guest")
			l.Members["new"] = model.LobbyMember{Username: "New", JoinedAt: 5}
			l.Votes["13"] = map[string]bool{"new": true}
			delete(l.Votes, "550")
			l.Movies = l.Movies[:1]
			l.MatchedMovieID = "13"
			l.Status = model.StatusMatched
			return nil
		})
		require.NoError(t, err)

		stored, err := s.Get(ctx, "UPD000")
		require.NoError(t, err)
		if diff := cmp.Diff(got, stored, lobbyCmp); diff != "" {
			t.Errorf("stored lobby differs from returned (-returned +stored):\n%s", diff)
		}
		assert.Equal(t, []string{"host", "new"}, sortedKeys(stored.Members))
		assert.Equal(t, []string{"new"}, stored.Voters(13))
		assert.Empty(t, stored.Voters(550))
		assert.Len(t, stored.Movies, 1)
		assert.Equal(t, model.StatusMatched, stored.Status)
	})

	t.Run("UpdateAbort", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("ABORT0", now)))

		boom := errors.New("boom")
		_, err := s.Update(ctx, "ABORT0", func(l *model.Lobby) error {
			l.Status = model.StatusCompleted
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "ABORT0")
		require.NoError(t, err)
		assert.Equal(t, model.StatusSwiping, got.Status)
	})

	t.Run("UpdateRemove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("REMOVE", now)))

		_, err := s.Update(ctx, "REMOVE", func(*model.Lobby) error { return lobby.ErrRemove })
		assert.ErrorIs(t, err, lobby.ErrRemove)

		ok, err := s.Exists(ctx, "REMOVE")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		s := newStore(t)
		l := Sample("CONCUR", now)
		l.Votes = nil
		require.NoError(t, s.Create(ctx, l))

		const n = 8
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, "CONCUR", func(l *model.Lobby) error {
					l.CurrentPage++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "CONCUR")
		require.NoError(t, err)
		assert.Equal(t, 1+n, got.CurrentPage)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("DELETE", now)))
		require.NoError(t, s.Delete(ctx, "DELETE"))
		require.NoError(t, s.Delete(ctx, "DELETE"))

		_, err := s.Get(ctx, "DELETE")
		assert.ErrorIs(t, err, lobby.ErrLobbyNotFound)
	})

	t.Run("PurgeBefore", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Sample("OLD000", now.Add(-48*time.Hour))))
		require.NoError(t, s.Create(ctx, Sample("NEW000", now)))

		codes, err := s.PurgeBefore(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"OLD000"}, codes)

		ok, err := s.Exists(ctx, "NEW000")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func sortedKeys(m map[string]model.LobbyMember) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

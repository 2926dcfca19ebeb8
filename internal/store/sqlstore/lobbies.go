// Package sqlstore persists lobbies and users in the relational database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BaGreal2/cinematch-server/internal/db"
	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Lobbies stores each lobby across lobbies, lobby_members, lobby_movies and
// lobby_votes.
type Lobbies struct {
	db *db.DB
}

func NewLobbies(database *db.DB) *Lobbies {
	return &Lobbies{db: database}
}

func (s *Lobbies) Create(ctx context.Context, l *model.Lobby) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO lobbies (code, host_id, created_by, created_at, status, matched_movie_id, current_page, deck_page)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			l.RoomCode, l.HostID, l.CreatedBy, l.CreatedAt, string(l.Status), l.MatchedMovieID, l.CurrentPage, l.DeckPage)
		if s.db.IsUniqueViolation(err) {
			return lobby.ErrLobbyExists
		}
		if err != nil {
			return fmt.Errorf("insert lobby: %w", err)
		}
		return s.saveChildren(ctx, tx, l)
	})
}

func (s *Lobbies) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT 1 FROM lobbies WHERE code = ?"), code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lobby exists: %w", err)
	}
	return true, nil
}

func (s *Lobbies) Get(ctx context.Context, code string) (*model.Lobby, error) {
	return s.load(ctx, s.db, code, false)
}

func (s *Lobbies) Update(ctx context.Context, code string, fn lobby.UpdateFunc) (*model.Lobby, error) {
	var out *model.Lobby
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		l, err := s.load(ctx, tx, code, true)
		if err != nil {
			return err
		}

		if err := fn(l); err != nil {
			if errors.Is(err, lobby.ErrRemove) {
				if derr := s.deleteTx(ctx, tx, code); derr != nil {
					return derr
				}
				return errCommit{err}
			}
			return err
		}

		_, err = tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE lobbies SET host_id = ?, status = ?, matched_movie_id = ?, current_page = ?, deck_page = ?
			WHERE code = ?`),
			l.HostID, string(l.Status), l.MatchedMovieID, l.CurrentPage, l.DeckPage, code)
		if err != nil {
			return fmt.Errorf("update lobby: %w", err)
		}

		for _, table := range []string{"lobby_members", "lobby_movies", "lobby_votes"} {
			if _, err := tx.ExecContext(ctx, s.db.Rebind("DELETE FROM "+table+" WHERE code = ?"), code); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if err := s.saveChildren(ctx, tx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Lobbies) Delete(ctx context.Context, code string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.deleteTx(ctx, tx, code)
	})
}

func (s *Lobbies) PurgeBefore(ctx context.Context, t time.Time) ([]string, error) {
	var codes []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.db.Rebind("SELECT code FROM lobbies WHERE created_at < ? ORDER BY code"), t.UnixMilli())
		if err != nil {
			return fmt.Errorf("list stale lobbies: %w", err)
		}
		codes = codes[:0]
		for rows.Next() {
			var code string
			if err := rows.Scan(&code); err != nil {
				rows.Close()
				return err
			}
			codes = append(codes, code)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, code := range codes {
			if err := s.deleteTx(ctx, tx, code); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// errCommit carries an error out of inTx while still committing.
type errCommit struct{ err error }

func (e errCommit) Error() string { return e.err.Error() }
func (e errCommit) Unwrap() error { return e.err }

func (s *Lobbies) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = fn(tx)
	var ec errCommit
	if err != nil && !errors.As(err, &ec) {
		return err
	}
	if cerr := tx.Commit(); cerr != nil {
		return fmt.Errorf("commit: %w", cerr)
	}
	if ec.err != nil {
		return ec.err
	}
	return nil
}

func (s *Lobbies) deleteTx(ctx context.Context, tx *sql.Tx, code string) error {
	for _, table := range []string{"lobby_votes", "lobby_movies", "lobby_members", "lobbies"} {
		if _, err := tx.ExecContext(ctx, s.db.Rebind("DELETE FROM "+table+" WHERE code = ?"), code); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func (s *Lobbies) saveChildren(ctx context.Context, tx *sql.Tx, l *model.Lobby) error {
	for uid, m := range l.Members {
		_, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO lobby_members (code, uid, username, gender, joined_at, host) VALUES (?, ?, ?, ?, ?, ?)`),
			l.RoomCode, uid, m.Username, m.Gender, m.JoinedAt, m.Host)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}

	for i, m := range l.Movies {
		genres, err := json.Marshal(nonNil(m.GenreIDs))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO lobby_movies (code, position, movie_id, title, overview, poster_path, backdrop_path, vote_average, release_date, genre_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			l.RoomCode, i, m.ID, m.Title, m.Overview, m.PosterPath, m.BackdropPath, m.VoteAverage, m.ReleaseDate, string(genres))
		if err != nil {
			return fmt.Errorf("insert movie %d: %w", m.ID, err)
		}
	}

	for movie, voters := range l.Votes {
		movieID, err := strconv.Atoi(movie)
		if err != nil {
			return fmt.Errorf("vote key %q: %w", movie, err)
		}
		for uid, yes := range voters {
			if !yes {
				continue
			}
			_, err := tx.ExecContext(ctx, s.db.Rebind(
				`INSERT INTO lobby_votes (code, movie_id, uid) VALUES (?, ?, ?)`),
				l.RoomCode, movieID, uid)
			if err != nil {
				return fmt.Errorf("insert vote: %w", err)
			}
		}
	}
	return nil
}

func (s *Lobbies) load(ctx context.Context, q querier, code string, lock bool) (*model.Lobby, error) {
	query := `SELECT code, host_id, created_by, created_at, status, matched_movie_id, current_page, deck_page
		FROM lobbies WHERE code = ?`
	if lock {
		query += s.db.ForUpdate
	}

	var l model.Lobby
	var status string
	err := q.QueryRowContext(ctx, s.db.Rebind(query), code).Scan(
		&l.RoomCode, &l.HostID, &l.CreatedBy, &l.CreatedAt, &status, &l.MatchedMovieID, &l.CurrentPage, &l.DeckPage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lobby.ErrLobbyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lobby: %w", err)
	}
	l.Status = model.LobbyStatus(status)
	l.Members = map[string]model.LobbyMember{}
	l.Votes = map[string]map[string]bool{}

	rows, err := q.QueryContext(ctx, s.db.Rebind(
		`SELECT uid, username, gender, joined_at, host FROM lobby_members WHERE code = ?`), code)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	for rows.Next() {
		var uid string
		var m model.LobbyMember
		if err := rows.Scan(&uid, &m.Username, &m.Gender, &m.JoinedAt, &m.Host); err != nil {
			rows.Close()
			return nil, err
		}
		l.Members[uid] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, s.db.Rebind(
		`SELECT movie_id, title, overview, poster_path, backdrop_path, vote_average, release_date, genre_ids
		FROM lobby_movies WHERE code = ? ORDER BY position`), code)
	if err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}
	for rows.Next() {
		var m model.Movie
		var genres string
		if err := rows.Scan(&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath, &m.VoteAverage, &m.ReleaseDate, &genres); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(genres), &m.GenreIDs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode genres of %d: %w", m.ID, err)
		}
		l.Movies = append(l.Movies, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, s.db.Rebind(`SELECT movie_id, uid FROM lobby_votes WHERE code = ?`), code)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var movieID int
		var uid string
		if err := rows.Scan(&movieID, &uid); err != nil {
			return nil, err
		}
		key := strconv.Itoa(movieID)
		if l.Votes[key] == nil {
			l.Votes[key] = map[string]bool{}
		}
		l.Votes[key][uid] = true
	}
	return &l, rows.Err()
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

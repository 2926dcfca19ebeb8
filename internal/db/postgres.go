package db

import (
	"errors"

	"github.com/lib/pq"
)

func init() {
	register(&Dialect{
		Name:      "postgres",
		ForUpdate: " FOR UPDATE",
		numbered:  true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE TABLE IF NOT EXISTS profiles (
				uid TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				gender TEXT NOT NULL DEFAULT '',
				birthday TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT ''
			);`,
			`CREATE TABLE IF NOT EXISTS user_favorites (
				uid TEXT NOT NULL,
				movie_id INTEGER NOT NULL,
				added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (uid, movie_id)
			);`,
			`CREATE TABLE IF NOT EXISTS lobbies (
				code TEXT PRIMARY KEY,
				host_id TEXT NOT NULL,
				created_by TEXT NOT NULL,
				created_at BIGINT NOT NULL,
				status TEXT NOT NULL,
				matched_movie_id TEXT NOT NULL DEFAULT '',
				current_page INTEGER NOT NULL DEFAULT 0,
				deck_page INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE TABLE IF NOT EXISTS lobby_members (
				code TEXT NOT NULL REFERENCES lobbies(code) ON DELETE CASCADE,
				uid TEXT NOT NULL,
				username TEXT NOT NULL,
				gender TEXT NOT NULL DEFAULT '',
				joined_at BIGINT NOT NULL,
				host BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (code, uid)
			);`,
			`CREATE TABLE IF NOT EXISTS lobby_movies (
				code TEXT NOT NULL REFERENCES lobbies(code) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				movie_id INTEGER NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				overview TEXT NOT NULL DEFAULT '',
				poster_path TEXT NOT NULL DEFAULT '',
				backdrop_path TEXT NOT NULL DEFAULT '',
				vote_average DOUBLE PRECISION NOT NULL DEFAULT 0,
				release_date TEXT NOT NULL DEFAULT '',
				genre_ids TEXT NOT NULL DEFAULT '[]',
				PRIMARY KEY (code, position)
			);`,
			`CREATE TABLE IF NOT EXISTS lobby_votes (
				code TEXT NOT NULL REFERENCES lobbies(code) ON DELETE CASCADE,
				movie_id INTEGER NOT NULL,
				uid TEXT NOT NULL,
				PRIMARY KEY (code, movie_id, uid)
			);`,
			`CREATE INDEX IF NOT EXISTS lobbies_created_at ON lobbies (created_at);`,
		},
		unique: func(err error) bool {
			var pe *pq.Error
			return errors.As(err, &pe) && pe.Code == "23505"
		},
	})
}

package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/BaGreal2/cinematch-server/internal/model"
	"github.com/BaGreal2/cinematch-server/internal/roomcode"
)

var (
	ErrLobbyNotFound     = errors.New("lobby not found")
	ErrLobbyExists       = errors.New("lobby already exists")
	ErrSessionStarted    = errors.New("session already started")
	ErrLobbyFull         = errors.New("lobby is full")
	ErrNotHost           = errors.New("only the host can do that")
	ErrNotMember         = errors.New("not a member of this lobby")
	ErrWrongStatus       = errors.New("lobby is not in the right state")
	ErrUnknownMovie      = errors.New("movie is not in the lobby queue")
	ErrEmptyQueue        = errors.New("no movies available")
	ErrNoMatch           = errors.New("lobby has no match yet")
	ErrRoomCodeExhausted = roomcode.ErrExhausted

	// ErrRemove is returned by an update func to delete the lobby instead of
	// saving it.
	ErrRemove = errors.New("remove lobby")
)

// UpdateFunc mutates l in place. Returning an error aborts the update; ErrRemove
// deletes the lobby.
type UpdateFunc func(l *model.Lobby) error

// Store persists lobbies. Update hands fn a private copy and must be atomic
// with respect to other updates of the same lobby. When fn returns ErrRemove
// the store deletes the lobby and returns ErrRemove.
type Store interface {
	Create(ctx context.Context, l *model.Lobby) error
	Exists(ctx context.Context, code string) (bool, error)
	Get(ctx context.Context, code string) (*model.Lobby, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*model.Lobby, error)
	Delete(ctx context.Context, code string) error
	// PurgeBefore deletes lobbies created before t and returns their codes.
	PurgeBefore(ctx context.Context, t time.Time) ([]string, error)
}

// Publisher fans lobby changes out to live subscribers.
type Publisher interface {
	PublishLobby(l *model.Lobby)
	PublishDeleted(code string)
}

// Catalog is the movie source for lobby decks.
type Catalog interface {
	Deck(ctx context.Context, startPage, pages int) ([]model.Movie, error)
	MovieDetails(ctx context.Context, id int) (*model.MovieDetails, error)
}

type nopPublisher struct{}

func (nopPublisher) PublishLobby(*model.Lobby) {}
func (nopPublisher) PublishDeleted(string)     {}

// Package lobby implements the shared swiping session: a host opens a lobby
// under a room code, friends join, everyone swipes through the same deck and
// the lobby matches once every current member has said Yes to one movie.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/match"
	"github.com/BaGreal2/cinematch-server/internal/model"
	"github.com/BaGreal2/cinematch-server/internal/roomcode"
)

const (
	MaxMembers       = 10
	DefaultDeckPages = 1
)

type Service struct {
	store     Store
	catalog   Catalog
	pub       Publisher
	codes     *roomcode.Generator
	log       *zap.Logger
	now       func() time.Time
	deckPages int
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDeckPages sets how many catalog pages a new session starts with.
func WithDeckPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.deckPages = n
		}
	}
}

func NewService(store Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		store:     store,
		catalog:   catalog,
		pub:       nopPublisher{},
		log:       zap.NewNop(),
		now:       time.Now,
		deckPages: DefaultDeckPages,
	}
	s.codes = roomcode.NewGenerator(store.Exists)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a lobby with uid as its host and only member.
func (s *Service) Create(ctx context.Context, uid, username, gender string) (*model.Lobby, error) {
	code, err := s.codes.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	l := &model.Lobby{
		RoomCode:  code,
		HostID:    uid,
		CreatedBy: uid,
		CreatedAt: now,
		Status:    model.StatusWaiting,
		Members: map[string]model.LobbyMember{
			uid: {Username: username, Gender: gender, JoinedAt: now, Host: true},
		},
		Votes: map[string]map[string]bool{},
	}
	if err := s.store.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create lobby %s: %w", code, err)
	}

	s.log.Info("lobby created", zap.String("code", code), zap.String("host", uid))
	s.pub.PublishLobby(l)
	return l, nil
}

func (s *Service) Get(ctx context.Context, code string) (*model.Lobby, error) {
	return s.store.Get(ctx, code)
}

func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	return s.store.Exists(ctx, code)
}

// Member returns uid's membership, or ErrNotMember.
func (s *Service) Member(ctx context.Context, code, uid string) (model.LobbyMember, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return model.LobbyMember{}, err
	}
	m, ok := l.Members[uid]
	if !ok {
		return model.LobbyMember{}, ErrNotMember
	}
	return m, nil
}

func (s *Service) Members(ctx context.Context, code string) (map[string]model.LobbyMember, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return l.Members, nil
}

// Join adds uid to a waiting lobby. Joining a lobby one already belongs to is
// a no-op, whatever its status.
func (s *Service) Join(ctx context.Context, code, uid, username, gender string) (*model.Lobby, error) {
	return s.update(ctx, code, func(l *model.Lobby) error {
		if l.IsMember(uid) {
			return nil
		}
		if l.Status != model.StatusWaiting {
			return ErrSessionStarted
		}
		if len(l.Members) >= MaxMembers {
			return ErrLobbyFull
		}
		l.Members[uid] = model.LobbyMember{
			Username: username,
			Gender:   gender,
			JoinedAt: s.now().UnixMilli(),
		}
		return nil
	})
}

// Leave removes uid. The last member leaving deletes the lobby; a leaving host
// hands over to the earliest remaining member. Because the match threshold is
// the live member count, a departure can complete a match.
func (s *Service) Leave(ctx context.Context, code, uid string) error {
	_, err := s.update(ctx, code, func(l *model.Lobby) error {
		if !l.IsMember(uid) {
			return nil
		}
		if len(l.Members) <= 1 {
			return ErrRemove
		}

		wasHost := l.Members[uid].Host || l.HostID == uid
		delete(l.Members, uid)
		for _, voters := range l.Votes {
			delete(voters, uid)
		}

		if wasHost {
			next := l.MemberIDs()[0]
			m := l.Members[next]
			m.Host = true
			l.Members[next] = m
			l.HostID = next
			s.log.Info("host transferred", zap.String("code", l.RoomCode), zap.String("from", uid), zap.String("to", next))
		}

		if l.Status == model.StatusSwiping {
			if id, ok := match.Find(l); ok {
				setMatched(l, id)
			}
		}
		return nil
	})
	if errors.Is(err, ErrLobbyNotFound) {
		return nil
	}
	return err
}

// Start fetches a deck and moves the lobby to swiping. Host only.
func (s *Service) Start(ctx context.Context, code, uid string) (*model.Lobby, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := requireHost(l, uid); err != nil {
		return nil, err
	}
	if l.Status != model.StatusWaiting {
		return nil, ErrSessionStarted
	}

	deck, err := s.catalog.Deck(ctx, 1, s.deckPages)
	if err != nil {
		return nil, fmt.Errorf("fetch deck: %w", err)
	}
	if len(deck) == 0 {
		return nil, ErrEmptyQueue
	}

	return s.update(ctx, code, func(l *model.Lobby) error {
		if err := requireHost(l, uid); err != nil {
			return err
		}
		if l.Status != model.StatusWaiting {
			return ErrSessionStarted
		}
		l.Movies = deck
		l.DeckPage = s.deckPages
		l.CurrentPage = 0
		l.Votes = map[string]map[string]bool{}
		l.MatchedMovieID = ""
		l.Status = model.StatusSwiping
		return nil
	})
}

// LoadMore appends the next catalog page to the deck, skipping movies already
// queued. Host only. It returns the number of movies added.
func (s *Service) LoadMore(ctx context.Context, code, uid string) (*model.Lobby, int, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	if err := requireHost(l, uid); err != nil {
		return nil, 0, err
	}
	if l.Status != model.StatusSwiping {
		return nil, 0, ErrWrongStatus
	}

	page := l.DeckPage + 1
	more, err := s.catalog.Deck(ctx, page, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch page %d: %w", page, err)
	}

	added := 0
	l, err = s.update(ctx, code, func(l *model.Lobby) error {
		added = 0
		if l.DeckPage >= page {
			return nil
		}
		before := len(l.Movies)
		l.Movies = model.AppendUnique(l.Movies, more)
		l.DeckPage = page
		added = len(l.Movies) - before
		return nil
	})
	return l, added, err
}

type VoteResult struct {
	Recorded bool `json:"recorded"`
	Matched  bool `json:"matched"`
	MovieID  int  `json:"movieId,omitempty"`
}

// Vote records uid's swipe on movieID. A Yes is stored under the movie; a No
// withdraws an earlier Yes. After every vote the lobby is checked for a match.
func (s *Service) Vote(ctx context.Context, code, uid string, movieID int, liked bool) (VoteResult, error) {
	var res VoteResult
	_, err := s.update(ctx, code, func(l *model.Lobby) error {
		res = VoteResult{}
		if !l.IsMember(uid) {
			return ErrNotMember
		}
		if l.Status != model.StatusSwiping {
			return ErrWrongStatus
		}
		if !l.HasMovie(movieID) {
			return ErrUnknownMovie
		}

		key := strconv.Itoa(movieID)
		if l.Votes == nil {
			l.Votes = map[string]map[string]bool{}
		}
		if liked {
			if l.Votes[key] == nil {
				l.Votes[key] = map[string]bool{}
			}
			l.Votes[key][uid] = true
		} else {
			delete(l.Votes[key], uid)
			if len(l.Votes[key]) == 0 {
				delete(l.Votes, key)
			}
		}
		res.Recorded = true

		votes, members := match.VoteCount(l, movieID), len(l.Members)
		s.log.Debug("vote recorded",
			zap.String("code", l.RoomCode),
			zap.Int("movie", movieID),
			zap.Int("votes", votes),
			zap.Int("members", members))

		if liked && match.IsMatch(votes, members) {
			setMatched(l, movieID)
			res.Matched = true
			res.MovieID = movieID
		}
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	if res.Matched {
		s.log.Info("lobby matched", zap.String("code", code), zap.Int("movie", movieID))
	}
	return res, nil
}

// Voters lists the members with a Yes on movieID.
func (s *Service) Voters(ctx context.Context, code string, movieID int) ([]string, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	var voters []string
	for _, id := range l.Voters(movieID) {
		if l.IsMember(id) {
			voters = append(voters, id)
		}
	}
	return voters, nil
}

// SetPage moves the shared deck position. Host only.
func (s *Service) SetPage(ctx context.Context, code, uid string, page int) (*model.Lobby, error) {
	if page < 0 {
		page = 0
	}
	return s.update(ctx, code, func(l *model.Lobby) error {
		if err := requireHost(l, uid); err != nil {
			return err
		}
		l.CurrentPage = page
		return nil
	})
}

func (s *Service) Page(ctx context.Context, code string) (int, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	return l.CurrentPage, nil
}

// Restart drops the current match and starts a fresh round of swiping from
// the top of the deck: every vote is cleared and the matched movie leaves the
// deck. Host only, and only while the lobby sits on its match.
func (s *Service) Restart(ctx context.Context, code, uid string) (*model.Lobby, error) {
	return s.update(ctx, code, func(l *model.Lobby) error {
		if err := requireHost(l, uid); err != nil {
			return err
		}
		if l.MatchedMovieID == "" {
			return ErrNoMatch
		}
		if l.Status != model.StatusMatched {
			return ErrWrongStatus
		}

		matched := l.MatchedMovieID
		l.Votes = map[string]map[string]bool{}
		kept := l.Movies[:0]
		for _, m := range l.Movies {
			if strconv.Itoa(m.ID) != matched {
				kept = append(kept, m)
			}
		}
		l.Movies = kept
		l.MatchedMovieID = ""
		l.CurrentPage = 0
		l.Status = model.StatusSwiping
		return nil
	})
}

// Play marks the matched movie as playing. Host only.
func (s *Service) Play(ctx context.Context, code, uid string) (*model.Lobby, error) {
	return s.transition(ctx, code, uid, model.StatusPlaying, model.StatusMatched)
}

// Complete ends the watch session. Host only.
func (s *Service) Complete(ctx context.Context, code, uid string) (*model.Lobby, error) {
	return s.transition(ctx, code, uid, model.StatusCompleted, model.StatusMatched, model.StatusPlaying)
}

// Matched returns the matched movie's details.
func (s *Service) Matched(ctx context.Context, code string) (*model.MovieDetails, error) {
	l, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if l.MatchedMovieID == "" {
		return nil, ErrNoMatch
	}
	id, err := strconv.Atoi(l.MatchedMovieID)
	if err != nil {
		return nil, fmt.Errorf("invalid matched movie id %q: %w", l.MatchedMovieID, err)
	}
	return s.catalog.MovieDetails(ctx, id)
}

// PurgeStale deletes lobbies created before cutoff.
func (s *Service) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	codes, err := s.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, code := range codes {
		s.pub.PublishDeleted(code)
	}
	if len(codes) > 0 {
		s.log.Info("purged stale lobbies", zap.Int("count", len(codes)))
	}
	return len(codes), nil
}

// RunJanitor purges lobbies older than ttl every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeStale(ctx, s.now().Add(-ttl)); err != nil {
				s.log.Warn("purge stale lobbies failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) transition(ctx context.Context, code, uid string, to model.LobbyStatus, from ...model.LobbyStatus) (*model.Lobby, error) {
	return s.update(ctx, code, func(l *model.Lobby) error {
		if err := requireHost(l, uid); err != nil {
			return err
		}
		for _, st := range from {
			if l.Status == st {
				l.Status = to
				return nil
			}
		}
		return ErrWrongStatus
	})
}

// update applies fn through the store and publishes the outcome.
func (s *Service) update(ctx context.Context, code string, fn UpdateFunc) (*model.Lobby, error) {
	l, err := s.store.Update(ctx, code, fn)
	switch {
	case errors.Is(err, ErrRemove):
		s.log.Info("lobby closed", zap.String("code", code))
		s.pub.PublishDeleted(code)
		return nil, nil
	case err != nil:
		return nil, err
	}
	s.pub.PublishLobby(l)
	return l, nil
}

func requireHost(l *model.Lobby, uid string) error {
	if !l.IsMember(uid) {
		return ErrNotMember
	}
	if l.HostID != uid {
		return ErrNotHost
	}
	return nil
}

func setMatched(l *model.Lobby, movieID int) {
	l.MatchedMovieID = strconv.Itoa(movieID)
	l.Status = model.StatusMatched
}

package model

import (
	"sort"
	"strconv"
)

type LobbyStatus string

const (
	StatusWaiting   LobbyStatus = "waiting"
	StatusSwiping   LobbyStatus = "swiping"
	StatusMatched   LobbyStatus = "matched"
	StatusPlaying   LobbyStatus = "playing"
	StatusCompleted LobbyStatus = "completed"
)

// Lobby mirrors lobbies/{roomCode}. Votes is keyed by TMDB movie id (as a
// string) and then by uid; presence of a uid means a Yes vote.
type Lobby struct {
	RoomCode       string                     `json:"roomCode"`
	HostID         string                     `json:"hostId"`
	CreatedBy      string                     `json:"createdBy"`
	CreatedAt      int64                      `json:"createdAt"`
	Status         LobbyStatus                `json:"status"`
	Members        map[string]LobbyMember     `json:"members,omitempty"`
	Movies         []Movie                    `json:"movies,omitempty"`
	Votes          map[string]map[string]bool `json:"votes,omitempty"`
	MatchedMovieID string                     `json:"matchedMovieId,omitempty"`
	CurrentPage    int                        `json:"currentPage"`
	DeckPage       int                        `json:"deckPage"`
}

type LobbyMember struct {
	Username string `json:"username"`
	Gender   string `json:"gender"`
	JoinedAt int64  `json:"joinedAt"`
	Host     bool   `json:"host"`
}

// MemberIDs returns member uids ordered by join time, then uid.
func (l *Lobby) MemberIDs() []string {
	ids := make([]string, 0, len(l.Members))
	for id := range l.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.Members[ids[i]], l.Members[ids[j]]
		if a.JoinedAt != b.JoinedAt {
			return a.JoinedAt < b.JoinedAt
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (l *Lobby) IsMember(uid string) bool {
	_, ok := l.Members[uid]
	return ok
}

func (l *Lobby) HasMovie(movieID int) bool {
	for _, m := range l.Movies {
		if m.ID == movieID {
			return true
		}
	}
	return false
}

// Voters returns the uids with a Yes vote on movieID, sorted.
func (l *Lobby) Voters(movieID int) []string {
	votes := l.Votes[strconv.Itoa(movieID)]
	ids := make([]string, 0, len(votes))
	for id, yes := range votes {
		if yes {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.Members = make(map[string]LobbyMember, len(l.Members))
	for k, v := range l.Members {
		c.Members[k] = v
	}
	c.Movies = make([]Movie, len(l.Movies))
	for i, m := range l.Movies {
		m.GenreIDs = append([]int(nil), m.GenreIDs...)
		c.Movies[i] = m
	}
	c.Votes = make(map[string]map[string]bool, len(l.Votes))
	for movie, voters := range l.Votes {
		vs := make(map[string]bool, len(voters))
		for k, v := range voters {
			vs[k] = v
		}
		c.Votes[movie] = vs
	}
	return &c
}

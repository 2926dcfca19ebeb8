// Package match decides when a lobby has agreed on a movie.
//
// A match needs a Yes from every current member. Members can leave mid-session,
// so callers always pass the live member count, never the count at start.
package match

import (
	"strconv"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

func IsMatch(voteCount, memberCount int) bool {
	return memberCount > 0 && voteCount >= memberCount
}

// VoteCount counts Yes votes on movieID that belong to current members.
func VoteCount(l *model.Lobby, movieID int) int {
	n := 0
	for uid, yes := range l.Votes[strconv.Itoa(movieID)] {
		if yes && l.IsMember(uid) {
			n++
		}
	}
	return n
}

// Find returns the first queued movie, in deck order, that every member voted
// Yes on.
func Find(l *model.Lobby) (int, bool) {
	members := len(l.Members)
	for _, m := range l.Movies {
		if IsMatch(VoteCount(l, m.ID), members) {
			return m.ID, true
		}
	}
	return 0, false
}

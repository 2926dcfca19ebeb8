package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

func TestIsMatch(t *testing.T) {
	tests := []struct {
		votes, members int
		want           bool
	}{
		{0, 0, false},
		{1, 0, false},
		{1, 2, false},
		{2, 2, true},
		{3, 2, true},
		{1, 1, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMatch(tt.votes, tt.members), "votes=%d members=%d", tt.votes, tt.members)
	}
}

func lobby() *model.Lobby {
	return &model.Lobby{
		Members: map[string]model.LobbyMember{
			"a": {JoinedAt: 1},
			"b": {JoinedAt: 2},
		},
		Movies: []model.Movie{{ID: 10}, {ID: 20}},
		Votes: map[string]map[string]bool{
			"10": {"a": true, "gone": true},
			"20": {"a": true, "b": true},
		},
	}
}

func TestVoteCount_IgnoresFormerMembers(t *testing.T) {
	l := lobby()
	assert.Equal(t, 1, VoteCount(l, 10))
	assert.Equal(t, 2, VoteCount(l, 20))
	assert.Equal(t, 0, VoteCount(l, 30))
}

func TestFind(t *testing.T) {
	l := lobby()
	id, ok := Find(l)
	assert.True(t, ok)
	assert.Equal(t, 20, id)

	// b leaves: movie 10 now has a Yes from everyone left.
	delete(l.Members, "b")
	id, ok = Find(l)
	assert.True(t, ok)
	assert.Equal(t, 10, id)

	l.Members = nil
	_, ok = Find(l)
	assert.False(t, ok)
}

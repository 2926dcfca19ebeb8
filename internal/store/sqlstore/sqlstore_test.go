package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaGreal2/cinematch-server/internal/db"
	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/model"
	"github.com/BaGreal2/cinematch-server/internal/store/storetest"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "cinematch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestLobbies(t *testing.T) {
	storetest.Run(t, func(t *testing.T) lobby.Store {
		return NewLobbies(openTestDB(t))
	})
}

func TestUsers_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))

	u, err := users.Register(ctx, model.RegisterRequest{
		Email: "ana@example.com", Username: "ana", Name: "Ana", Gender: "Female", Birthday: "1998-05-21",
	}, "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = users.Register(ctx, model.RegisterRequest{Email: "ana@example.com", Username: "other"}, "h")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = users.Register(ctx, model.RegisterRequest{Email: "x@example.com", Username: "ana"}, "h")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	for _, ident := range []string{"ana", "ana@example.com"} {
		got, hash, err := users.Credentials(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "hash", hash)
	}

	_, _, err = users.Credentials(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	p, err := users.Profile(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "1998-05-21", p.Birthday)
}

func TestUsers_Profile(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))

	p, err := users.Profile(ctx, "firebase-uid")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, users.SaveProfile(ctx, model.UserProfile{UID: "firebase-uid", Name: "Jo"}))
	require.NoError(t, users.SaveProfile(ctx, model.UserProfile{UID: "firebase-uid", Name: "Jo", Gender: "Other"}))

	p, err = users.Profile(ctx, "firebase-uid")
	require.NoError(t, err)
	assert.Equal(t, "Other", p.Gender)

	assert.Error(t, users.SaveProfile(ctx, model.UserProfile{}))
}

func TestUsers_Favorites(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))

	require.NoError(t, users.AddFavorite(ctx, "u", 550))
	require.NoError(t, users.AddFavorite(ctx, "u", 550))
	require.NoError(t, users.AddFavorite(ctx, "u", 13))

	favs, err := users.Favorites(ctx, "u")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{13, 550}, favs)

	require.NoError(t, users.RemoveFavorite(ctx, "u", 550))
	favs, err = users.Favorites(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []int{13}, favs)

	favs, err = users.Favorites(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, favs)
}

package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type Favorites interface {
	AddFavorite(ctx context.Context, uid string, movieID int) error
	RemoveFavorite(ctx context.Context, uid string, movieID int) error
	Favorites(ctx context.Context, uid string) ([]int, error)
}

func AddFavoriteHandler(favs Favorites, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		movieID, ok := intParam(w, r.PathValue("id"), "movie id")
		if !ok {
			return
		}

		if err := favs.AddFavorite(r.Context(), uid, movieID); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func RemoveFavoriteHandler(favs Favorites, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		movieID, ok := intParam(w, r.PathValue("id"), "movie id")
		if !ok {
			return
		}

		if err := favs.RemoveFavorite(r.Context(), uid, movieID); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func ListFavoritesHandler(favs Favorites, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUser(w, r)
		if !ok {
			return
		}
		favorites, err := favs.Favorites(r.Context(), uid)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"favorites": favorites})
	}
}

package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/tmdb"
)

func TrendingHandler(client *tmdb.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movies, err := client.Trending(r.Context(), r.URL.Query().Get("window"))
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, movies)
	}
}

func PopularHandler(client *tmdb.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageQuery(w, r)
		if !ok {
			return
		}
		movies, err := client.Popular(r.Context(), page)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, movies)
	}
}

func TopRatedHandler(client *tmdb.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageQuery(w, r)
		if !ok {
			return
		}
		movies, err := client.TopRated(r.Context(), page)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, movies)
	}
}

func MovieDetailsHandler(client *tmdb.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r.PathValue("id"), "movie id")
		if !ok {
			return
		}
		details, err := client.MovieDetails(r.Context(), id)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

// MovieVideosHandler passes TMDB's trailer list through untouched.
func MovieVideosHandler(client *tmdb.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r.PathValue("id"), "movie id")
		if !ok {
			return
		}
		client.Proxy(w, r, fmt.Sprintf("/movie/%d/videos", id), nil)
	}
}

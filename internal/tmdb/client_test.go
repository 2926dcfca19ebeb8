package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("tok", WithBaseURL(srv.URL))
}

func TestPopular_SendsAuthAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/popular", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		fmt.Fprint(w, `{"page":2,"results":[{"id":7,"title":"Heat","genre_ids":[80]}],"total_pages":9}`)
	})

	resp, err := c.Popular(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 9, resp.TotalPages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Heat", resp.Results[0].Title)
	assert.Equal(t, []int{80}, resp.Results[0].GenreIDs)
}

func TestAPIKeyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "k3y", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithAPIKey("k3y"))
	_, err := c.TopRated(context.Background(), 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c.Proxy(rec, httptest.NewRequest(http.MethodGet, "/movies/5/videos", nil), "/movie/5/videos", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerWinsOverAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithAPIKey("k3y"))
	_, err := c.Popular(context.Background(), 1)
	require.NoError(t, err)
}

func TestWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Popular(context.Background(), 1)
	assert.Error(t, err)
}

func TestTrending_DefaultsWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/movie/day", r.URL.Path)
		fmt.Fprint(w, `{"results":[]}`)
	})
	_, err := c.Trending(context.Background(), "bogus")
	require.NoError(t, err)
}

func TestMovieDetails_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.MovieDetails(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMovieDetails_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.MovieDetails(context.Background(), 1)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestDeck_MergesPagesInOrder(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		// Pages overlap by one movie.
		resp := model.MovieListResponse{Page: page, Results: []model.Movie{{ID: page * 10}, {ID: page*10 + 10}}}
		json.NewEncoder(w).Encode(resp)
	})

	deck, err := c.Deck(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())

	var ids []int
	for _, m := range deck {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]int{10, 20, 30, 40}, ids); diff != "" {
		t.Errorf("deck ids mismatch (-want +got):\n%s", diff)
	}
}

func TestDeck_PropagatesError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":1}]}`)
	})
	_, err := c.Deck(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestProxy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/5/videos", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"ok":true}`)
	})

	rec := httptest.NewRecorder()
	c.Proxy(rec, httptest.NewRequest(http.MethodGet, "/movies/5/videos", nil), "/movie/5/videos", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestImageHelpers(t *testing.T) {
	assert.Equal(t, "", ImageURL(""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", ImageURL("/p.jpg"))
	assert.Equal(t, "https://www.themoviedb.org/movie/42", WatchURL(42))
	assert.Equal(t, []string{"Action", "Sci-Fi"}, GenreNames([]int{28, 1, 878}))
}

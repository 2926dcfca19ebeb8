package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "en-US"
)

var ErrNotFound = errors.New("tmdb: not found")

// StatusError is returned for any non-2xx TMDB response.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s returned %d", e.Path, e.Code)
}

type Client struct {
	baseURL  string
	bearer   string
	apiKey   string
	language string
	http     *http.Client
	log      *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAPIKey sets the v3 api key, sent as ?api_key= only when no read access
// token is configured.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient authenticates every request with the TMDB read access token, or
// with the api key when bearer is empty.
func NewClient(bearer string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		bearer:   bearer,
		language: DefaultLanguage,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trending lists movies trending over window ("day" or "week").
func (c *Client) Trending(ctx context.Context, window string) (*model.MovieListResponse, error) {
	if window != "week" {
		window = "day"
	}
	var resp model.MovieListResponse
	err := c.get(ctx, "/trending/movie/"+window, nil, &resp)
	return &resp, err
}

func (c *Client) Popular(ctx context.Context, page int) (*model.MovieListResponse, error) {
	var resp model.MovieListResponse
	err := c.get(ctx, "/movie/popular", pageQuery(page), &resp)
	return &resp, err
}

func (c *Client) TopRated(ctx context.Context, page int) (*model.MovieListResponse, error) {
	var resp model.MovieListResponse
	err := c.get(ctx, "/movie/top_rated", pageQuery(page), &resp)
	return &resp, err
}

func (c *Client) MovieDetails(ctx context.Context, id int) (*model.MovieDetails, error) {
	var details model.MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Deck fetches pages popular pages starting at startPage concurrently and
// returns their movies in page order with duplicates removed.
func (c *Client) Deck(ctx context.Context, startPage, pages int) ([]model.Movie, error) {
	if startPage < 1 {
		startPage = 1
	}
	if pages < 1 {
		pages = 1
	}

	results := make([][]model.Movie, pages)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			resp, err := c.Popular(ctx, startPage+i)
			if err != nil {
				return err
			}
			results[i] = resp.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var deck []model.Movie
	for _, page := range results {
		deck = model.AppendUnique(deck, page)
	}
	return deck, nil
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("language", c.language)
	if c.bearer == "" && c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("tmdb request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

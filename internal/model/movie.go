package model

// Movie is a single TMDB list result.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
	GenreIDs     []int   `json:"genre_ids"`
}

// MovieListResponse is the envelope of TMDB list endpoints
// (trending, popular, top_rated).
type MovieListResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MovieDetails struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	Genres      []Genre `json:"genres"`
	Homepage    string  `json:"homepage"`
}

// AppendUnique appends the movies of next not already in deck, by id.
func AppendUnique(deck, next []Movie) []Movie {
	seen := make(map[int]struct{}, len(deck))
	for _, m := range deck {
		seen[m.ID] = struct{}{}
	}
	for _, m := range next {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		deck = append(deck, m)
	}
	return deck
}

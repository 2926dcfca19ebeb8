package tmdb

import "strconv"

const (
	ImageBaseURL = "https://image.tmdb.org/t/p/w500"
	WebBaseURL   = "https://www.themoviedb.org/movie/"
)

var genres = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Sci-Fi",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

// ImageURL expands a poster or backdrop path; empty paths stay empty.
func ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + path
}

func WatchURL(id int) string {
	return WebBaseURL + strconv.Itoa(id)
}

// GenreNames maps genre ids to names, skipping unknown ids.
func GenreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genres[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Package buildconfig reads the untracked local.properties file and turns the
// secrets it holds into compile-time constants.
//
// A missing file is not an error: every declared key then resolves to the
// literal text "null", which is what the generated constants carry.
package buildconfig

import (
	"fmt"
	"sort"

	"github.com/magiconair/properties"
)

const (
	TMDBReadAccessToken = "TMDB_READ_ACCESS_TOKEN"
	TMDBAPIKey          = "TMDB_API_KEY"
	FBRouteInstanceURL  = "FB_ROUTE_INSTANCE_URL"

	// Null is what an absent key renders as.
	Null = "null"

	DefaultFile = "local.properties"
)

// Keys lists the injected fields in declaration order.
var Keys = []string{TMDBReadAccessToken, TMDBAPIKey, FBRouteInstanceURL}

type Properties struct {
	path   string
	found  bool
	values map[string]string
}

// Load reads a properties file. A file that does not exist yields an empty set.
func Load(path string) (*Properties, error) {
	l := &properties.Loader{
		Encoding:         properties.ISO_8859_1,
		DisableExpansion: true,
		IgnoreMissing:    true,
	}

	p, err := l.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return &Properties{
		path:   path,
		found:  p.Len() > 0 || fileExists(path),
		values: p.Map(),
	}, nil
}

// FromMap builds a property set without touching the filesystem.
func FromMap(m map[string]string) *Properties {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = v
	}
	return &Properties{found: true, values: values}
}

func (p *Properties) Path() string { return p.path }

// Found reports whether the backing file existed.
func (p *Properties) Found() bool { return p.found }

func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Value returns the value for key or Null when it is absent.
func (p *Properties) Value(key string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return Null
}

// Missing returns the declared keys that are absent, sorted.
func Missing(p *Properties) []string {
	var missing []string
	for _, k := range Keys {
		if _, ok := p.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

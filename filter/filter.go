package filter

import (
	"fmt"
	"math"
	"strings"

	"cine-scraper/movie"
)

// Criteria are the user supplied conditions a movie must meet. Empty string
// fields are unset.
type Criteria struct {
	MinIMDb     float64 `json:"min_imdb"`
	Genre       string  `json:"genre,omitempty"`
	Actor       string  `json:"actor,omitempty"`
	Director    string  `json:"director,omitempty"`
	Country     string  `json:"country,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	ReleaseYear string  `json:"release_year,omitempty"`
}

// Validate checks that the score threshold is a valid rating.
func (c Criteria) Validate() error {
	if math.IsNaN(c.MinIMDb) || c.MinIMDb < 0 || c.MinIMDb > 10 {
		return fmt.Errorf("minimum IMDb %.1f outside 0-10", c.MinIMDb)
	}
	return nil
}

func (c Criteria) String() string {
	parts := []string{fmt.Sprintf("imdb>=%.1f", c.MinIMDb)}
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("genre", c.Genre)
	add("actor", c.Actor)
	add("director", c.Director)
	add("country", c.Country)
	add("duration", c.Duration)
	add("release", c.ReleaseYear)
	return strings.Join(parts, " ")
}

// Accept reports whether r satisfies every set criterion. Movies without a
// rating never pass, whatever the threshold.
func Accept(r movie.Record, c Criteria) bool {
	score, ok := r.Score()
	if !ok || score < c.MinIMDb {
		return false
	}
	return contains(r.Genre, c.Genre) &&
		contains(r.Actors, c.Actor) &&
		contains(r.Director, c.Director) &&
		contains(r.Country, c.Country) &&
		contains(r.Duration, c.Duration) &&
		(c.ReleaseYear == "" || strings.Contains(r.Release, c.ReleaseYear))
}

func contains(value, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(want))
}

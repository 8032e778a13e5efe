package movie

import (
	"math"
	"strconv"
)

// NoScore is the IMDb value the site prints when a movie has no rating.
const NoScore = "-"

// Columns is the table layout shared by the CSV export and the renderers.
var Columns = []string{"Title", "Link", "Description", "Genre", "Actors", "Director", "Country", "Duration", "Release", "IMDb"}

// Record is one movie extracted from a detail page. Values are trimmed and
// never modified after construction.
type Record struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Actors      string `json:"actors"`
	Director    string `json:"director"`
	Country     string `json:"country"`
	Duration    string `json:"duration"`
	Release     string `json:"release"`
	IMDb        string `json:"imdb"`
}

// Row returns the record values in Columns order.
func (r Record) Row() []string {
	return []string{r.Title, r.Link, r.Description, r.Genre, r.Actors, r.Director, r.Country, r.Duration, r.Release, r.IMDb}
}

// Score parses the IMDb value. ok is false for the NoScore sentinel and for
// anything outside [0,10].
func (r Record) Score() (score float64, ok bool) {
	return ParseScore(r.IMDb)
}

// ParseScore parses an IMDb rating as printed on the detail page.
func ParseScore(s string) (float64, bool) {
	if s == NoScore || s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 10 {
		return 0, false
	}
	return v, true
}

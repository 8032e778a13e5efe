package extractor

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"cine-scraper/movie"
)

// Field names one labelled value inside the info segment of a detail block.
type Field string

const (
	Genre    Field = "genre"
	Actors   Field = "actors"
	Director Field = "director"
	Country  Field = "country"
	Duration Field = "duration"
	Release  Field = "release"
	IMDb     Field = "imdb"
)

// FieldError reports why a single field could not be located.
type FieldError struct {
	Field  Field
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Result is the outcome of one extraction rule.
type Result struct {
	Field Field
	Value string
	Err   error
}

// Extraction holds every rule result for one detail block. All rules run
// even when an earlier one fails.
type Extraction struct {
	Description string
	Results     []Result
}

// Err combines the failures of all rules, nil when every field was found.
func (x Extraction) Err() error {
	var err error
	for _, r := range x.Results {
		err = multierr.Append(err, r.Err)
	}
	return err
}

// Value returns the extracted value of f, or "" if the rule failed.
func (x Extraction) Value(f Field) string {
	for _, r := range x.Results {
		if r.Field == f && r.Err == nil {
			return r.Value
		}
	}
	return ""
}

// Record builds the movie record. A record is only produced when every
// field was extracted.
func (x Extraction) Record(title, link string) (movie.Record, error) {
	if err := x.Err(); err != nil {
		return movie.Record{}, err
	}
	return movie.Record{
		Title:       strings.TrimSpace(title),
		Link:        strings.TrimSpace(link),
		Description: strings.TrimSpace(x.Description),
		Genre:       x.Value(Genre),
		Actors:      x.Value(Actors),
		Director:    x.Value(Director),
		Country:     x.Value(Country),
		Duration:    x.Value(Duration),
		Release:     x.Value(Release),
		IMDb:        x.Value(IMDb),
	}, nil
}

type rule struct {
	field   Field
	extract func(info string) (string, error)
}

// rules are evaluated independently against the full info text. The page
// renders labels and values back to back ("Genre:DramaActor:...") so every
// value is bounded by the label that follows it.
//
// Genre and actors are taken by colon position: the actor list is the third
// colon segment only because "Genre:" and "Actor:" precede it. A colon inside
// a genre or actor value shifts both.
var rules = []rule{
	{Genre, func(s string) (string, error) { return colonSegment(s, "Actor", 1) }},
	{Actors, func(s string) (string, error) { return colonSegment(s, "Director", 2) }},
	{Director, func(s string) (string, error) { return between(s, "Director:", "Country:") }},
	{Country, func(s string) (string, error) { return between(s, "Country:", "Quality") }},
	{Duration, func(s string) (string, error) { return between(s, "Duration:", "Release:") }},
	{Release, func(s string) (string, error) { return between(s, "Release:", "IMDb:") }},
	{IMDb, score},
}

// Extract applies every field rule to the info segment of b.
func Extract(b Block) Extraction {
	x := Extraction{
		Description: b.Description,
		Results:     make([]Result, 0, len(rules)),
	}
	for _, r := range rules {
		v, err := r.extract(b.Info)
		if err != nil {
			err = &FieldError{Field: r.field, Reason: err.Error()}
			v = ""
		}
		x.Results = append(x.Results, Result{Field: r.field, Value: v, Err: err})
	}
	return x
}

// colonSegment returns the n-th ":" separated piece of the text preceding end.
func colonSegment(s, end string, n int) (string, error) {
	i := strings.Index(s, end)
	if i < 0 {
		return "", fmt.Errorf("anchor %q not found", end)
	}
	parts := strings.Split(s[:i], ":")
	if len(parts) <= n {
		return "", fmt.Errorf("expected %d colon segments before %q, found %d", n+1, end, len(parts))
	}
	return strings.TrimSpace(parts[n]), nil
}

// between returns the text after the first start anchor up to the end anchor.
// The scan after start stops at a repeated start anchor.
func between(s, start, end string) (string, error) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", fmt.Errorf("anchor %q not found", start)
	}
	rest := s[i+len(start):]
	if j := strings.Index(rest, start); j >= 0 {
		rest = rest[:j]
	}
	j := strings.Index(rest, end)
	if j < 0 {
		return "", fmt.Errorf("anchor %q not found after %q", end, start)
	}
	return strings.TrimSpace(rest[:j]), nil
}

func score(s string) (string, error) {
	v, err := between(s, "IMDb:", "/")
	if err != nil {
		return "", err
	}
	if v == movie.NoScore {
		return v, nil
	}
	if _, ok := movie.ParseScore(v); !ok {
		return "", fmt.Errorf("score %q is not a rating between 0 and 10", v)
	}
	return v, nil
}

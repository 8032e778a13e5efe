package stats

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cine-scraper/movie"
)

// Count is a value and how many movies carry it.
type Count struct {
	Name string
	N    int
}

// Summary is the numeric input for the charts drawn from a dataset.
type Summary struct {
	Movies   int
	MeanIMDb float64
	// IMDbHistogram[i] counts scores in [i, i+1); 10 falls in the last bin.
	IMDbHistogram [10]int
	TopGenres     []Count
	TopActors     []Count
	TopDirectors  []Count
	TopCountries  []Count
	ReleaseYears  map[int]int
	// Durations holds the positive minute values that could be parsed.
	Durations []int
	// DurationIMDbCorrelation is Pearson's r over movies with both values,
	// zero when it is undefined.
	DurationIMDbCorrelation float64
}

// TopN is the length of the rankings shown in run reports.
const TopN = 10

var listSep = regexp.MustCompile(`,\s*`)

// Summarize computes the chart inputs for records, keeping topN entries per
// ranking.
func Summarize(records []movie.Record, topN int) Summary {
	s := Summary{
		Movies:       len(records),
		ReleaseYears: make(map[int]int),
	}
	genres := make(map[string]int)
	actors := make(map[string]int)
	directors := make(map[string]int)
	countries := make(map[string]int)

	var scoreSum float64
	var scored int
	var xs, ys []float64
	for _, r := range records {
		score, ok := r.Score()
		if ok {
			scoreSum += score
			scored++
			bin := int(score)
			if bin > 9 {
				bin = 9
			}
			s.IMDbHistogram[bin]++
		}
		if r.Genre != "" {
			genres[r.Genre]++
		}
		tally(actors, r.Actors)
		tally(directors, r.Director)
		tally(countries, r.Country)
		if y, err := strconv.Atoi(strings.TrimSpace(r.Release)); err == nil {
			s.ReleaseYears[y]++
		}
		if m, err := ToMinutes(r.Duration); err == nil && m > 0 {
			s.Durations = append(s.Durations, m)
			if ok {
				xs = append(xs, float64(m))
				ys = append(ys, score)
			}
		}
	}
	if scored > 0 {
		s.MeanIMDb = scoreSum / float64(scored)
	}
	s.TopGenres = top(genres, topN)
	s.TopActors = top(actors, topN)
	s.TopDirectors = top(directors, topN)
	s.TopCountries = top(countries, topN)
	s.DurationIMDbCorrelation = pearson(xs, ys)
	return s
}

func tally(m map[string]int, list string) {
	for _, name := range listSep.Split(list, -1) {
		name = strings.TrimSpace(name)
		if name == "" || name == movie.NoScore {
			continue
		}
		m[name]++
	}
}

func top(m map[string]int, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, N: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// Histogram labels the IMDb bins as "0-1" through "9-10".
func (s Summary) Histogram() []Count {
	out := make([]Count, len(s.IMDbHistogram))
	for i, n := range s.IMDbHistogram {
		out[i] = Count{Name: fmt.Sprintf("%d-%d", i, i+1), N: n}
	}
	return out
}

// MeanDuration is the average of Durations, zero without any.
func (s Summary) MeanDuration() float64 {
	if len(s.Durations) == 0 {
		return 0
	}
	total := 0
	for _, d := range s.Durations {
		total += d
	}
	return float64(total) / float64(len(s.Durations))
}

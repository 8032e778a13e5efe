package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cine-scraper/collector"
	"cine-scraper/extractor"
	"cine-scraper/filter"
	"cine-scraper/movie"
)

type card struct {
	title string
	href  string
}

func listingHTML(cards ...card) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="row">`)
	for _, c := range cards {
		fmt.Fprintf(&b, `<div class="col"><div class="card h-100 border-0 shadow">
<a class="rounded poster" href="%s"><img src="/p.jpg"></a>
<div class="card-body"><h2 class="card-title text-light fs-6 m-0">%s</h2></div>
</div></div>`, c.href, c.title)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func detailHTML(description, info string) string {
	return `<html><body><div class="col-12 col-lg-7 border-sm-end"><h1>Title</h1><p>` + description +
		`</p><div class="info">` + info + `</div></div></body></html>`
}

func info(score string) string {
	return `<p><strong>Genre:</strong> Drama</p><p><strong>Actor:</strong> Jane Doe, John Roe</p>` +
		`<p><strong>Director:</strong> Ann Smith</p><p><strong>Country:</strong> Canada</p>` +
		`<p><strong>Quality:</strong> HD</p><p><strong>Duration:</strong> 1h 50m</p>` +
		`<p><strong>Release:</strong> 2019</p><p><strong>IMDb:</strong> ` + score + `/10</p>`
}

// site serves a fake catalog and counts requests per path.
type site struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   map[string]int
}

func newSite() *site {
	return &site{pages: map[string]string{}, status: map[string]int{}, hits: map[string]int{}}
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.pages[r.URL.Path]
	code := s.status[r.URL.Path]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if code != 0 {
		w.WriteHeader(code)
		fmt.Fprint(w, "<html><body>error</body></html>")
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func (s *site) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for p, c := range s.hits {
		if strings.HasPrefix(p, prefix) {
			n += c
		}
	}
	return n
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func warnings(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.test/movies/", PageURL("https://x.test/movies/", 1))
	assert.Equal(t, "https://x.test/movies/page/3/", PageURL("https://x.test/movies/", 3))
	assert.Equal(t, "https://x.test/movies/page/2/", PageURL("https://x.test/movies", 2))
}

func TestRun_EndToEnd(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(card{"Good Movie", "/movie/good/"}, card{"Unrated Movie", "/movie/unrated/"})
	s.pages["/movies/page/2/"] = listingHTML()
	s.pages["/movie/good/"] = detailHTML("A fine film.", info("7.5"))
	s.pages["/movie/unrated/"] = detailHTML("No score yet.", info("-"))
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, _ := quietLogger()
	ds := collector.NewDataset()
	report, err := NewRunner(Options{}, log).Run(context.Background(), srv.URL+"/movies/", filter.Criteria{MinIMDb: 0}, ds)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 2, s.count("/movies/"))
	assert.Equal(t, 2, s.count("/movie/"))

	recs := ds.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Good Movie", recs[0].Title)
	assert.Equal(t, srv.URL+"/movie/good/", recs[0].Link)
	assert.Equal(t, "A fine film.", recs[0].Description)
	assert.Equal(t, "Drama", recs[0].Genre)
	assert.Equal(t, "Jane Doe, John Roe", recs[0].Actors)
	assert.Equal(t, "Ann Smith", recs[0].Director)
	assert.Equal(t, "Canada", recs[0].Country)
	assert.Equal(t, "1h 50m", recs[0].Duration)
	assert.Equal(t, "2019", recs[0].Release)
	assert.Equal(t, "7.5", recs[0].IMDb)
}

func TestRun_ClearsDatasetAndFilters(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(card{"A", "/movie/a/"}, card{"B", "/movie/b/"})
	s.pages["/movies/page/2/"] = listingHTML()
	s.pages["/movie/a/"] = detailHTML("a", info("6.9"))
	s.pages["/movie/b/"] = detailHTML("b", info("8.1"))
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, _ := quietLogger()
	ds := collector.NewDataset()
	ds.Add(movie.Record{Title: "stale"})

	report, err := NewRunner(Options{}, log).Run(context.Background(), srv.URL+"/movies/", filter.Criteria{MinIMDb: 7, Country: "canada"}, ds)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "B", ds.Records()[0].Title)
}

func TestRun_ListingFailureKeepsPartialResults(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(card{"Good Movie", "/movie/good/"})
	s.status["/movies/page/2/"] = http.StatusServiceUnavailable
	s.pages["/movie/good/"] = detailHTML("d", info("8.0"))
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, hook := quietLogger()
	ds := collector.NewDataset()
	report, err := NewRunner(Options{}, log).Run(context.Background(), srv.URL+"/movies/", filter.Criteria{}, ds)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Page)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)

	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 0, s.count("/movies/page/3/"))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRun_ItemFailuresAreIsolated(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(
		card{"Gone", "/movie/gone/"},
		card{"Broken", "/movie/broken/"},
		card{"Fine", "/movie/fine/"},
	)
	s.pages["/movies/page/2/"] = listingHTML()
	s.status["/movie/gone/"] = http.StatusNotFound
	s.pages["/movie/broken/"] = detailHTML("d", strings.Replace(info("7.0"), "Director:", "Producer:", 1))
	s.pages["/movie/fine/"] = detailHTML("d", info("7.0"))
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, hook := quietLogger()
	ds := collector.NewDataset()
	report, err := NewRunner(Options{}, log).Run(context.Background(), srv.URL+"/movies/", filter.Criteria{}, ds)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Accepted)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "Fine", ds.Records()[0].Title)
	// the 404 is silent, the extraction failure is reported
	assert.Equal(t, []string{"Error processing a movie"}, warnings(hook))
}

func TestRun_EmptyListing(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML()
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, _ := quietLogger()
	ds := collector.NewDataset()
	report, err := NewRunner(Options{}, log).Run(context.Background(), srv.URL+"/movies/", filter.Criteria{}, ds)
	require.NoError(t, err)
	assert.Zero(t, report.Accepted)
	assert.Zero(t, report.Pages)
	assert.Equal(t, 1, s.count("/movies/"))
}

func TestRun_Cancelled(t *testing.T) {
	s := newSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log, _ := quietLogger()
	_, err := NewRunner(Options{}, log).Run(ctx, srv.URL+"/movies/", filter.Criteria{}, collector.NewDataset())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.count("/"))
}

func TestPaginator_Restartable(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(card{"One", "/movie/1/"}, card{"", "/movie/untitled/"})
	s.pages["/movies/page/2/"] = listingHTML(card{"Two", "https://elsewhere.test/movie/2/"})
	s.pages["/movies/page/3/"] = listingHTML()
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, _ := quietLogger()
	p := NewPaginator(NewCollector(Options{}), log)

	collect := func() []Entry {
		var out []Entry
		for page, err := range p.Pages(context.Background(), srv.URL+"/movies/") {
			require.NoError(t, err)
			out = append(out, page.Entries...)
		}
		return out
	}
	want := []Entry{
		{Title: "One", Link: srv.URL + "/movie/1/"},
		{Title: "Two", Link: "https://elsewhere.test/movie/2/"},
	}
	assert.Equal(t, want, collect())
	assert.Equal(t, want, collect())
	assert.Equal(t, 6, s.count("/movies/"))
}

func TestPaginator_EarlyBreak(t *testing.T) {
	s := newSite()
	s.pages["/movies/"] = listingHTML(card{"One", "/movie/1/"})
	s.pages["/movies/page/2/"] = listingHTML(card{"Two", "/movie/2/"})
	srv := httptest.NewServer(s)
	defer srv.Close()

	log, _ := quietLogger()
	p := NewPaginator(NewCollector(Options{}), log)
	for page, err := range p.Pages(context.Background(), srv.URL+"/movies/") {
		require.NoError(t, err)
		assert.Equal(t, 1, page.Number)
		assert.Equal(t, 1, page.Cards)
		break
	}
	assert.Equal(t, 1, s.count("/movies/"))
}

func TestDetailFetcher(t *testing.T) {
	s := newSite()
	s.pages["/movie/ok/"] = detailHTML("Plot.", info("7.0"))
	s.pages["/movie/plain/"] = "<html><body><p>nothing here</p></body></html>"
	s.status["/movie/teapot/"] = http.StatusTeapot
	srv := httptest.NewServer(s)
	defer srv.Close()

	f := NewDetailFetcher(NewCollector(Options{}))

	b, err := f.Fetch(context.Background(), srv.URL+"/movie/ok/")
	require.NoError(t, err)
	assert.Equal(t, "Plot.", b.Description)
	assert.True(t, strings.HasPrefix(b.Info, "Genre:Drama"))

	_, err = f.Fetch(context.Background(), srv.URL+"/movie/plain/")
	assert.ErrorIs(t, err, extractor.ErrMissingBlock)

	_, err = f.Fetch(context.Background(), srv.URL+"/movie/teapot/")
	assert.ErrorIs(t, err, ErrDetailUnavailable)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTeapot, se.StatusCode)

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable/")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDetailUnavailable)
}

package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"cine-scraper/collector"
	"cine-scraper/extractor"
	"cine-scraper/filter"
	"cine-scraper/movie"
)

// Report describes a finished run. Failed movies are not counted.
type Report struct {
	BaseURL    string
	Criteria   filter.Criteria
	Pages      int
	Accepted   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner drives one scraping run: listing pages, detail pages, field
// extraction, filtering and collection, strictly in sequence.
type Runner struct {
	lister  Lister
	details DetailSource
	log     *logrus.Logger
}

// NewRunner wires a Runner on top of a single base collector.
func NewRunner(opts Options, log *logrus.Logger) *Runner {
	c := NewCollector(opts)
	return NewRunnerWith(NewPaginator(c, log), NewDetailFetcher(c), log)
}

func NewRunnerWith(lister Lister, details DetailSource, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{lister: lister, details: details, log: log}
}

// Run clears ds and fills it with the movies from baseURL that satisfy
// criteria, in discovery order. The returned error is a *PageError when a
// listing page failed, or the context error when ctx was cancelled; ds keeps
// everything accepted before that point. Per-movie failures are logged and
// never returned.
func (r *Runner) Run(ctx context.Context, baseURL string, criteria filter.Criteria, ds *collector.Dataset) (Report, error) {
	ds.Reset()
	report := Report{BaseURL: baseURL, Criteria: criteria, StartedAt: time.Now()}

	r.log.WithFields(logrus.Fields{"url": baseURL, "criteria": criteria.String()}).Info("Starting movie scrape")

	var runErr error
	for page, err := range r.lister.Pages(ctx, baseURL) {
		if err != nil {
			runErr = err
			break
		}
		report.Pages++
		plog := r.log.WithField("page", page.Number)
		plog.WithField("movies", len(page.Entries)).Info("Scraping listing page")

		for _, entry := range page.Entries {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			rec, err := r.item(ctx, entry)
			if err != nil {
				ilog := plog.WithFields(logrus.Fields{"title": entry.Title, "link": entry.Link})
				if errors.Is(err, ErrDetailUnavailable) {
					ilog.WithError(err).Debug("Skipping unavailable movie")
				} else {
					ilog.WithError(err).Warn("Error processing a movie")
				}
				continue
			}
			if !filter.Accept(rec, criteria) {
				continue
			}
			ds.Add(rec)
			report.Accepted++
		}
		if runErr != nil {
			break
		}
	}

	report.FinishedAt = time.Now()
	fields := logrus.Fields{"accepted": report.Accepted, "pages": report.Pages, "took": report.FinishedAt.Sub(report.StartedAt)}
	switch {
	case runErr == nil:
		r.log.WithFields(fields).Info("Movie scrape complete")
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		r.log.WithFields(fields).WithError(runErr).Warn("Movie scrape stopped")
	default:
		r.log.WithFields(fields).WithError(runErr).Error("Movie scrape aborted")
	}
	return report, runErr
}

func (r *Runner) item(ctx context.Context, entry Entry) (movie.Record, error) {
	block, err := r.details.Fetch(ctx, entry.Link)
	if err != nil {
		return movie.Record{}, &ItemError{Title: entry.Title, Link: entry.Link, Stage: "fetch", Err: err}
	}
	rec, err := extractor.Extract(block).Record(entry.Title, entry.Link)
	if err != nil {
		return movie.Record{}, &ItemError{Title: entry.Title, Link: entry.Link, Stage: "extract", Err: err}
	}
	return rec, nil
}

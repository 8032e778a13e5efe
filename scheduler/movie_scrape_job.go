package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"cine-scraper/collector"
	"cine-scraper/filter"
	"cine-scraper/movie"
	"cine-scraper/notifier"
	"cine-scraper/scraper"
	"cine-scraper/stats"
	"cine-scraper/storage"
)

// Scraper runs one scrape into a dataset.
type Scraper interface {
	Run(ctx context.Context, baseURL string, criteria filter.Criteria, ds *collector.Dataset) (scraper.Report, error)
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(run storage.Run, movies []movie.Record) (int64, error)
}

// Notifier reports finished runs.
type Notifier interface {
	NotifyRun(r notifier.RunReport) error
}

// ErrJobRunning is returned when a run starts while another is in progress.
var ErrJobRunning = errors.New("movie scrape already running")

// JobOptions select what a job scrapes and where the export goes.
type JobOptions struct {
	BaseURL  string
	Criteria filter.Criteria
	// CSVPath is where the dataset is exported after each run, empty to skip.
	CSVPath string
}

// MovieScrapeJob scrapes the catalog, exports and stores the accepted
// movies and sends a report.
type MovieScrapeJob struct {
	scraper  Scraper
	store    RunStore
	notifier Notifier
	dataset  *collector.Dataset
	opts     JobOptions
	log      *logrus.Logger
	running  sync.Mutex
}

// NewMovieScrapeJob creates the job. store and notify may be nil.
func NewMovieScrapeJob(s Scraper, store RunStore, notify Notifier, ds *collector.Dataset, opts JobOptions, log *logrus.Logger) *MovieScrapeJob {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ds == nil {
		ds = collector.NewDataset()
	}
	return &MovieScrapeJob{
		scraper:  s,
		store:    store,
		notifier: notify,
		dataset:  ds,
		opts:     opts,
		log:      log,
	}
}

// Name returns the name of the job
func (j *MovieScrapeJob) Name() string {
	return "movie_scraper"
}

// Dataset exposes the movies of the latest run.
func (j *MovieScrapeJob) Dataset() *collector.Dataset {
	return j.dataset
}

// Run executes one scrape. A failed listing page ends the scrape but keeps
// its partial results, so it is logged rather than returned; cancellation
// and output failures are returned.
func (j *MovieScrapeJob) Run(ctx context.Context) error {
	// runs share the dataset, a second one would reset it mid-scrape
	if !j.running.TryLock() {
		j.log.WithField("job", j.Name()).Warn("Scrape already in progress, skipping")
		return ErrJobRunning
	}
	defer j.running.Unlock()

	report, runErr := j.scraper.Run(ctx, j.opts.BaseURL, j.opts.Criteria, j.dataset)
	movies := j.dataset.Records()

	stopped := ""
	if runErr != nil {
		stopped = runErr.Error()
	}

	var errs []error
	if j.opts.CSVPath != "" {
		if err := j.dataset.SaveCSV(j.opts.CSVPath); err != nil {
			errs = append(errs, err)
		} else {
			j.log.WithFields(logrus.Fields{"path": j.opts.CSVPath, "movies": len(movies)}).Info("Exported movies")
		}
	}

	if j.store != nil {
		runID, err := j.store.SaveRun(storage.Run{
			BaseURL:    report.BaseURL,
			Criteria:   report.Criteria.String(),
			Pages:      report.Pages,
			Accepted:   report.Accepted,
			Error:      stopped,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
		}, movies)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to save run: %w", err))
		} else {
			j.log.WithField("run_id", runID).Debug("Saved run")
		}
	}

	if j.notifier != nil {
		err := j.notifier.NotifyRun(notifier.RunReport{
			BaseURL:  report.BaseURL,
			Criteria: report.Criteria.String(),
			Pages:    report.Pages,
			Movies:   movies,
			Stopped:  stopped,
		})
		if err != nil {
			j.log.WithError(err).Error("Failed to send email notification")
		}
	}

	summary := stats.Summarize(movies, stats.TopN)
	j.log.WithFields(logrus.Fields{
		"movies":        summary.Movies,
		"mean_imdb":     fmt.Sprintf("%.2f", summary.MeanIMDb),
		"imdb_bins":     summary.IMDbHistogram,
		"genres":        summary.TopGenres,
		"actors":        summary.TopActors,
		"directors":     summary.TopDirectors,
		"countries":     summary.TopCountries,
		"release_years": summary.ReleaseYears,
		"durations":     len(summary.Durations),
		"mean_duration": fmt.Sprintf("%.0f", summary.MeanDuration()),
		"duration_imdb": fmt.Sprintf("%.2f", summary.DurationIMDbCorrelation),
	}).Info("Scrape summary")

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		errs = append(errs, runErr)
	}
	return multierr.Combine(errs...)
}

package storage

import (
	"time"

	"cine-scraper/movie"
)

// Run is one recorded scraping run.
type Run struct {
	ID         int64     `json:"id"`
	BaseURL    string    `json:"base_url"`
	Criteria   string    `json:"criteria"`
	Pages      int       `json:"pages"`
	Accepted   int       `json:"accepted"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// StorageInterface is the movie store used by the command line tools.
type StorageInterface interface {
	Initialize() error
	SaveRun(run Run, movies []movie.Record) (int64, error)
	GetAllMovies() ([]movie.Record, error)
	GetMoviesByRun(runID int64) ([]movie.Record, error)
	SearchMovies(title string) ([]movie.Record, error)
	GetRecentRuns(limit int) ([]Run, error)
	GetStats() (map[string]int, error)
	Close() error
}

var _ StorageInterface = (*SQLiteStorage)(nil)

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"cine-scraper/movie"
	"cine-scraper/stats"
)

const movieColumns = `title, link, description, genre, actors, director, country, duration, release_year, imdb`

type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	dataPath string
	log      *logrus.Logger
}

func NewSQLiteStorage(dataPath string, log *logrus.Logger) *SQLiteStorage {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dbPath := filepath.Join(dataPath, "movies.db")
	return &SQLiteStorage{
		dbPath:   dbPath,
		dataPath: dataPath,
		log:      log,
	}
}

func (s *SQLiteStorage) Initialize() error {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	s.db = db

	if err := s.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.log.WithField("path", s.dbPath).Info("SQLite database initialized")
	return nil
}

// SaveRun records run and upserts its accepted movies in one transaction.
func (s *SQLiteStorage) SaveRun(run Run, movies []movie.Record) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
	INSERT INTO runs (base_url, criteria, pages, accepted, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.BaseURL, run.Criteria, run.Pages, run.Accepted, run.Error, run.StartedAt, run.FinishedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for i, m := range movies {
		movieID, err := saveMovie(tx, runID, m)
		if err != nil {
			return 0, err
		}
		// the same link twice in one run keeps its first position
		_, err = tx.Exec(`INSERT OR IGNORE INTO run_movies (run_id, movie_id, position) VALUES (?, ?, ?)`, runID, movieID, i)
		if err != nil {
			return 0, fmt.Errorf("failed to link movie %q to run %d: %w", m.Title, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// saveMovie upserts m by link and returns its row id.
func saveMovie(tx *sql.Tx, runID int64, m movie.Record) (int64, error) {
	var minutes sql.NullInt64
	if n, err := stats.ToMinutes(m.Duration); err == nil && n > 0 {
		minutes = sql.NullInt64{Int64: int64(n), Valid: true}
	}

	var id int64
	err := tx.QueryRow(`SELECT id FROM movies WHERE link = ?`, m.Link).Scan(&id)
	switch {
	case err == nil:
		// keep the original scraped_at
		_, err = tx.Exec(`
		UPDATE movies
		SET title = ?, description = ?, genre = ?, actors = ?, director = ?, country = ?,
			duration = ?, duration_minutes = ?, release_year = ?, imdb = ?, last_run_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		`, m.Title, m.Description, m.Genre, m.Actors, m.Director, m.Country,
			m.Duration, minutes, m.Release, m.IMDb, runID, id)
		if err != nil {
			return 0, fmt.Errorf("failed to update movie %q: %w", m.Title, err)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to check if movie exists: %w", err)
	}

	res, err := tx.Exec(`
	INSERT INTO movies (`+movieColumns+`, duration_minutes, last_run_id,
		scraped_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, m.Title, m.Link, m.Description, m.Genre, m.Actors, m.Director, m.Country,
		m.Duration, m.Release, m.IMDb, minutes, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movie %q: %w", m.Title, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) GetAllMovies() ([]movie.Record, error) {
	return s.queryMovies(`SELECT `+movieColumns+` FROM movies ORDER BY id`)
}

// GetMoviesByRun returns the movies accepted by a run in the order they were
// found. Values are the latest scraped for each movie.
func (s *SQLiteStorage) GetMoviesByRun(runID int64) ([]movie.Record, error) {
	return s.queryMovies(`
	SELECT m.title, m.link, m.description, m.genre, m.actors, m.director, m.country, m.duration, m.release_year, m.imdb
	FROM run_movies rm
	JOIN movies m ON m.id = rm.movie_id
	WHERE rm.run_id = ?
	ORDER BY rm.position
	`, runID)
}

func (s *SQLiteStorage) SearchMovies(title string) ([]movie.Record, error) {
	return s.queryMovies(`SELECT `+movieColumns+` FROM movies WHERE title LIKE ? ORDER BY id`, "%"+title+"%")
}

func (s *SQLiteStorage) queryMovies(query string, args ...any) ([]movie.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var movies []movie.Record
	for rows.Next() {
		var m movie.Record
		err := rows.Scan(&m.Title, &m.Link, &m.Description, &m.Genre, &m.Actors, &m.Director,
			&m.Country, &m.Duration, &m.Release, &m.IMDb)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (s *SQLiteStorage) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
	SELECT id, base_url, criteria, pages, accepted, error, started_at, finished_at
	FROM runs
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.BaseURL, &r.Criteria, &r.Pages, &r.Accepted, &r.Error, &r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database handle, opening it without running
// migrations when Initialize has not been called.
func (s *SQLiteStorage) GetDB() (*sql.DB, error) {
	if s.db == nil {
		if err := os.MkdirAll(s.dataPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := sql.Open("sqlite3", s.dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
	}
	return s.db, nil
}

func (s *SQLiteStorage) GetStats() (map[string]int, error) {
	counts := make(map[string]int)

	queries := []struct {
		key   string
		query string
	}{
		{"movies", "SELECT COUNT(*) FROM movies"},
		{"runs", "SELECT COUNT(*) FROM runs"},
		{"failed_runs", "SELECT COUNT(*) FROM runs WHERE error != ''"},
	}
	for _, q := range queries {
		var n int
		if err := s.db.QueryRow(q.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to get %s count: %w", q.key, err)
		}
		counts[q.key] = n
	}
	return counts, nil
}

// MigrationManager returns a migration manager for the open database.
func (s *SQLiteStorage) MigrationManager() (*MigrationManager, error) {
	if s.db == nil {
		return nil, errors.New("storage not initialized")
	}
	return NewMigrationManager(s.db, s.log)
}

func (s *SQLiteStorage) GetDatabaseVersion(ctx context.Context) (int64, error) {
	mm, err := s.MigrationManager()
	if err != nil {
		return 0, err
	}
	return mm.Version(ctx)
}

func (s *SQLiteStorage) RunMigrations(ctx context.Context) error {
	mm, err := s.MigrationManager()
	if err != nil {
		return err
	}
	return mm.Up(ctx)
}

func (s *SQLiteStorage) RollbackMigration(ctx context.Context) error {
	mm, err := s.MigrationManager()
	if err != nil {
		return err
	}
	return mm.Down(ctx)
}

func (s *SQLiteStorage) ResetDatabase(ctx context.Context) error {
	mm, err := s.MigrationManager()
	if err != nil {
		return err
	}
	return mm.Reset(ctx)
}

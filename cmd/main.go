package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"cine-scraper/collector"
	"cine-scraper/config"
	"cine-scraper/movie"
	"cine-scraper/notifier"
	"cine-scraper/scheduler"
	"cine-scraper/scraper"
	"cine-scraper/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	envFile := flag.String("env", "", "Read configuration from this .env file instead of the environment")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *envFile != "" {
		cfg, err = config.LoadFile(*envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)
	log.Info("Starting movie scraper...")

	if cfg.RunMode == "mailtest" {
		emailNotifier, err := notifier.NewEmailNotifier(cfg.Email, log)
		if err != nil {
			log.WithError(err).Fatal("Email is not configured")
		}
		if err := emailNotifier.SendTestEmail(); err != nil {
			log.WithError(err).Fatal("Test email failed")
		}
		log.Info("Test email sent")
		return
	}

	sqliteStorage := storage.NewSQLiteStorage(cfg.DataPath, log)
	if err := sqliteStorage.Initialize(); err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer sqliteStorage.Close()

	if cfg.RunMode == "export" {
		if err := exportMovies(sqliteStorage, cfg.ExportTitle, cfg.CSVPath, log); err != nil {
			log.WithError(err).Error("Export failed")
		}
		return
	}

	var notify scheduler.Notifier
	if cfg.Email.Enabled() {
		emailNotifier, err := notifier.NewEmailNotifier(cfg.Email, log)
		if err != nil {
			log.WithError(err).Error("Failed to create email notifier")
		} else {
			notify = emailNotifier
			log.WithField("recipient", cfg.Email.RecipientEmail).Info("Email notifications enabled")
		}
	} else {
		log.Info("Email notifications disabled: missing configuration")
	}

	runner := scraper.NewRunner(scraper.Options{Timeout: cfg.RequestTimeout, UserAgent: cfg.UserAgent}, log)
	job := scheduler.NewMovieScrapeJob(runner, sqliteStorage, notify, collector.NewDataset(), scheduler.JobOptions{
		BaseURL:  cfg.BaseURL,
		Criteria: cfg.Criteria,
		CSVPath:  cfg.CSVPath,
	}, log)

	switch cfg.RunMode {
	case "scheduler":
		log.Info("Starting in scheduler mode")

		sched := scheduler.NewScheduler(log)
		if err := sched.AddJobSchedules(job, cfg.Schedules...); err != nil {
			log.WithError(err).Fatal("Failed to schedule movie scraper job")
		}
		sched.Start()
		log.WithField("schedules", cfg.Schedules).Info("Scheduler started")

		if cfg.RunAtStartup {
			log.Info("Running initial scrape at startup")
			if err := sched.RunJobNow(job.Name()); err != nil {
				log.WithError(err).Error("Error running initial job")
			}
		}

		displayDatabaseStats(sqliteStorage, log)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		log.Info("Application running. Press Ctrl+C to exit")

		sig := <-quit
		log.WithField("signal", sig.String()).Info("Shutting down...")
		sched.Stop()

	case "once":
		log.Info("Running in single execution mode")

		// Ctrl+C stops the scrape between pages and movies
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()

		if err := job.Run(ctx); err != nil {
			log.WithError(err).Error("Error running job")
		}
		log.WithField("movies", job.Dataset().Len()).Info("Scraping completed or stopped")

		displayDatabaseStats(sqliteStorage, log)
	}

	log.Info("Application exiting")
}

// exportMovies writes stored movies, optionally only titles containing
// title, to a CSV file.
func exportMovies(db storage.StorageInterface, title, path string, log *logrus.Logger) error {
	var (
		movies []movie.Record
		err    error
	)
	if title != "" {
		movies, err = db.SearchMovies(title)
	} else {
		movies, err = db.GetAllMovies()
	}
	if err != nil {
		return err
	}

	ds := collector.NewDataset()
	for _, m := range movies {
		ds.Add(m)
	}
	if err := ds.SaveCSV(path); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"path": path, "movies": ds.Len(), "title": title}).Info("Exported stored movies")
	return nil
}

// displayDatabaseStats shows database statistics
func displayDatabaseStats(db storage.StorageInterface, log *logrus.Logger) {
	counts, err := db.GetStats()
	if err != nil {
		log.WithError(err).Error("Error getting database stats")
		return
	}
	log.WithFields(logrus.Fields{
		"movies":      counts["movies"],
		"runs":        counts["runs"],
		"failed_runs": counts["failed_runs"],
	}).Info("Database statistics")

	runs, err := db.GetRecentRuns(5)
	if err != nil {
		log.WithError(err).Error("Error getting recent runs")
		return
	}
	for _, r := range runs {
		entry := log.WithFields(logrus.Fields{
			"run":      r.ID,
			"accepted": r.Accepted,
			"pages":    r.Pages,
			"finished": r.FinishedAt.Format("2006-01-02 15:04"),
		})
		if r.Error != "" {
			entry = entry.WithField("stopped", r.Error)
		}
		entry.Info("Recent run")
	}

	if len(runs) == 0 {
		return
	}
	latest, err := db.GetMoviesByRun(runs[0].ID)
	if err != nil {
		log.WithError(err).Error("Error getting movies of the latest run")
		return
	}
	for _, m := range latest {
		log.WithFields(logrus.Fields{"run": runs[0].ID, "imdb": m.IMDb, "release": m.Release}).Info(m.Title)
	}
}

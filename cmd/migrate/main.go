package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"cine-scraper/storage"
)

const usage = `Usage: migrate [-data dir] <command>

Commands:
  up       apply pending migrations (default)
  down     roll back the latest migration
  status   list migrations and whether they are applied
  version  print the schema version
  reset    roll back every migration, dropping all stored movies and runs
`

func main() {
	dataPath := flag.String("data", "./data", "Directory holding movies.db")
	verbose := flag.Bool("v", false, "Log each migration")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	// Open without Initialize: that would apply every migration before a
	// down or status could look at the schema.
	store := storage.NewSQLiteStorage(*dataPath, log)
	if _, err := store.GetDB(); err != nil {
		log.WithError(err).Fatal("Failed to open movie database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, store, command); err != nil {
		log.WithError(err).WithField("command", command).Error("Migration command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, store *storage.SQLiteStorage, command string) error {
	switch command {
	case "up":
		if err := store.RunMigrations(ctx); err != nil {
			return err
		}
	case "down":
		if err := store.RollbackMigration(ctx); err != nil {
			return err
		}
	case "reset":
		if err := store.ResetDatabase(ctx); err != nil {
			return err
		}
	case "status":
		mm, err := store.MigrationManager()
		if err != nil {
			return err
		}
		states, err := mm.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
		for _, s := range states {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, state, s.Path)
		}
		return w.Flush()
	case "version":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	version, err := store.GetDatabaseVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Schema version: %d\n", version)
	return nil
}

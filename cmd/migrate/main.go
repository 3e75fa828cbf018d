// Command migrate manages the SQLite schema using the migrations embedded
// in the sqlite package.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/infra/sqlite"
	"github.com/dvloznov/carteira/internal/logger"
)

var errUsage = errors.New("usage: migrate [-db path] up | down -steps n | version")

func main() {
	cfg, warnings := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	if err := run(os.Args[1:], cfg.DatabasePath, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

// run executes one migrate command against the database at defaultPath,
// unless -db overrides it.
func run(args []string, defaultPath string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dbPath := fs.String("db", defaultPath, "Path to the SQLite database (or set DATABASE_PATH env)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "up":
		if err := sqlite.Migrate(db); err != nil {
			return err
		}
	case "down":
		downFlags := flag.NewFlagSet("down", flag.ContinueOnError)
		downFlags.SetOutput(io.Discard)
		steps := downFlags.Int("steps", 1, "Number of migrations to roll back")
		if err := downFlags.Parse(rest); err != nil {
			return errUsage
		}
		if err := sqlite.MigrateDown(db, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return errUsage
	}

	version, dirty, err := sqlite.Version(db)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(out, "%s: schema version %d (%s)\n", *dbPath, version, state)
	return nil
}

// The migrate binary applies the schema migrations under ./migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

func main() {
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "database URL (defaults to DATABASE_URL)")
	path := flag.String("path", "./migrations", "migrations directory")
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of steps to apply (0 applies all)")
	flag.Parse()

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *dbURL == "" {
		logger.Log.Fatal("Database URL required via -db flag or DATABASE_URL")
	}

	if err := run(*dbURL, *path, *direction, *steps); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}
}

func run(dbURL, path, direction string, steps int) error {
	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case direction == "down" && steps > 0:
		err = m.Steps(-steps)
	case direction == "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Log.Info("Migrations applied", zap.String("version", "none"))
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		logger.Log.Info("Migrations applied",
			zap.Uint("version", uint(version)),
			zap.Bool("dirty", dirty),
		)
	}
	return nil
}

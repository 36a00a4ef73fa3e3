// Command migrate manages the development auth API schema. It reads
// DATABASE_URL through the same config as cmd/authapi, so a shared .env is
// enough:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down -steps 1
//	go run ./cmd/migrate version
//	go run ./cmd/migrate force -version 1
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"horizonx-console/internal/adapters/postgres"
	"horizonx-console/internal/config"
	"horizonx-console/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	steps := flags.Int("steps", 0, "steps for up/down (0 = all)")
	version := flags.Int("version", -1, "schema version for force")
	dsn := flags.String("dsn", cfg.DatabaseURL, "auth API database url")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: migrate <up|down|version|force> [-steps n] [-version v] [-dsn url]")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(2)
	}
	op := os.Args[1]
	_ = flags.Parse(os.Args[2:])

	m, closeDB, err := open(*dsn)
	if err != nil {
		log.Error("migrate: setup failed", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	if err := run(m, op, *steps, *version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("migrate: schema already current")
			return
		}
		log.Error("migrate: failed", "op", op, "error", err)
		os.Exit(1)
	}

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Error("migrate: read version failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrate: done", "op", op, "version", v, "dirty", dirty)
}

func open(dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database driver: %w", err)
	}

	src, err := iofs.New(postgres.MigrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate instance: %w", err)
	}

	return m, func() { _, _ = m.Close() }, nil
}

func run(m *migrate.Migrate, op string, steps, version int) error {
	switch op {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	case "version":
		return nil
	case "force":
		if version < 0 {
			return errors.New("force needs -version")
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

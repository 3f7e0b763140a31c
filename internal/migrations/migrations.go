// Package migrations embeds the schema for every SQL backend and applies it
// with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Postgres applies the postgres schema over db. db is closed by golang-migrate afterwards.
func Postgres(db *sql.DB, dir Direction) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := newMigrate(postgresFS, "postgres", "pgx5", driver)
	if err != nil {
		return err
	}
	defer m.Close()

	return run(m, dir)
}

// SQLite applies the sqlite schema over db. db stays open.
func SQLite(db *sql.DB, dir Direction) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	m, err := newMigrate(sqliteFS, "sqlite", "sqlite", driver)
	if err != nil {
		return err
	}
	// m.Close would close db as well, the storage keeps using it.
	return run(m, dir)
}

func newMigrate(fsys embed.FS, path, dbName string, driver database.Driver) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func run(m *migrate.Migrate, dir Direction) error {
	var err error
	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	return nil
}

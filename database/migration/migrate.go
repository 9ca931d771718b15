// Package migration applies versioned SQL migrations from an embedded
// filesystem with golang-migrate.
package migration

import (
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// Source is a set of migrations: files named VERSION_name.up.sql and
// VERSION_name.down.sql under Dir.
type Source struct {
	FS  fs.FS
	Dir string
}

// Up applies every pending migration. No pending migration is not an error.
func Up(db *gorm.DB, src Source) error {
	m, err := newMigrator(db, src)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func Down(db *gorm.DB, src Source) error {
	m, err := newMigrator(db, src)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the applied version and whether the last run failed midway.
func Version(db *gorm.DB, src Source) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, src)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrator must not be followed by m.Close: that closes the shared pool.
func newMigrator(db *gorm.DB, src Source) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	source, err := iofs.New(src.FS, src.Dir)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

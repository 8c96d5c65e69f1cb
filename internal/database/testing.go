package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
)

// NewTestDB opens a migrated, private in-memory SQLite database. It is used
// by tests across packages.
func NewTestDB() (*Database, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	// A single connection keeps the in-memory database alive and serializes
	// access to it.
	db.SetMaxOpenConns(1)

	d := &Database{db: db, driver: DriverSQLite, logger: logger}
	ctx := context.Background()
	if err := d.initGorm(ctx, &sqlite.Dialector{Conn: db}); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

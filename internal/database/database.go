package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures the backing store.
type Config struct {
	Driver       string
	Path         string
	URL          string
	MaxOpenConns int
}

type Database struct {
	db     *sql.DB
	orm    *gorm.DB
	pool   *pgxpool.Pool
	driver string
	logger *logrus.Logger

	// transaction options used for report reads
	snapshot []*sql.TxOptions
}

// NewDatabase opens an SQLite database file, creating its directory if needed.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	return Open(context.Background(), Config{Driver: DriverSQLite, Path: dbPath}, logger)
}

// Open connects to the configured store and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	d := &Database{driver: cfg.Driver, logger: logger}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite3", sqliteDSN(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		d.db = db
		dialector = &sqlite.Dialector{Conn: db}
	case DriverPostgres:
		pool, err := newPostgresPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		d.db = stdlib.OpenDBFromPool(pool)
		dialector = postgres.New(postgres.Config{Conn: d.db})
		d.snapshot = []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		d.db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := d.initGorm(ctx, dialector); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) initGorm(ctx context.Context, dialector gorm.Dialector) error {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(d.logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize gorm: %w", err)
	}
	d.orm = gdb
	return d.Ping(ctx)
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path)
}

func newPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL configuration is required")
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// ReadSnapshot runs fn inside a read transaction so that every query it
// issues sees the same state of the tables.
func (d *Database) ReadSnapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.orm.WithContext(ctx).Transaction(fn, d.snapshot...)
}

// Transaction runs fn in a read-write transaction that commits only if fn
// returns nil.
func (d *Database) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return d.orm.Transaction(fc, opts...)
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Gorm() *gorm.DB {
	return d.orm
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Close() error {
	var err error
	if d.db != nil {
		err = d.db.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

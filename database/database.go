package database

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the archive index file. The schema is dynamic (one timestamp
// column per archive), so all statements go through raw SQL instead of gorm
// models.
type Database struct {
	Cli    *gorm.DB
	Logger zerolog.Logger
}

func Open(path string, log zerolog.Logger, opts ...Option) (*Database, error) {
	o := openOptions{cacheBytes: defaultCacheBytes}
	for _, opt := range opts {
		opt(&o)
	}

	// Negative cache_size is in KiB. Set through the DSN so every pooled
	// connection gets it.
	dsn := fmt.Sprintf("%s?_pragma=cache_size(%d)", path, -(o.cacheBytes / 1024))
	cli, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	return &Database{Cli: cli, Logger: log}, nil
}

// Init creates the schema if it does not exist yet.
func (d *Database) Init(ctx context.Context) error {
	cli := d.Cli.WithContext(ctx)
	err := cli.Exec(`CREATE TABLE IF NOT EXISTS "files" ("path" TEXT PRIMARY KEY NOT NULL) STRICT`).Error
	if err != nil {
		return err
	}
	return cli.Exec(`CREATE TABLE IF NOT EXISTS "archives" ("archive_name" TEXT UNIQUE NOT NULL) STRICT`).Error
}

// Store returns an autocommit handle.
func (d *Database) Store() *Store {
	return &Store{cli: d.Cli, logger: d.Logger}
}

// Transaction runs fn against a store handle bound to a single write
// transaction. The transaction is committed when fn returns nil and rolled
// back otherwise.
func (d *Database) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return d.Cli.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{cli: tx, logger: d.Logger})
	})
}

func (d *Database) Close() error {
	sqlDB, err := d.Cli.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Compact reclaims space after large churn. Must not run inside a
// transaction.
func (d *Database) Compact(ctx context.Context) error {
	d.Logger.Debug().Msg("compacting database")
	return d.Cli.WithContext(ctx).Exec("VACUUM").Error
}

type dblog struct {
	parent zerolog.Logger
}

// Error implements logger.Interface.
func (d *dblog) Error(_ context.Context, msg string, args ...interface{}) {
	d.parent.Error().Msgf(msg, args...)
}

// Info implements logger.Interface.
func (d *dblog) Info(_ context.Context, msg string, args ...interface{}) {
	d.parent.Info().Msgf(msg, args...)
}

// Warn implements logger.Interface.
func (d *dblog) Warn(_ context.Context, msg string, args ...interface{}) {
	d.parent.Warn().Msgf(msg, args...)
}

// LogMode implements logger.Interface.
func (d *dblog) LogMode(lvl logger.LogLevel) logger.Interface {
	var zl zerolog.Level
	switch lvl {
	case logger.Info:
		zl = zerolog.InfoLevel
	case logger.Warn:
		zl = zerolog.WarnLevel
	case logger.Error:
		zl = zerolog.ErrorLevel
	default:
		zl = zerolog.Disabled
	}
	return &dblog{parent: d.parent.Level(zl)}
}

// Trace implements logger.Interface.
func (d *dblog) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	e := d.parent.Trace()
	if err != nil {
		e.Err(err)
	}
	e.Time("begin", begin).Func(func(e *zerolog.Event) {
		sql, rows := fc()
		e.Str("sql", sql)
		e.Int64("rows_affected", rows)
	}).Msg("")
}

func dbLogger(log zerolog.Logger) logger.Interface {
	return &dblog{parent: log}
}

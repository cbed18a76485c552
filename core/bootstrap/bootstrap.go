// Package bootstrap brings the process from parsed config to ready
// infrastructure: logging first, then the database, then migrations.
// Profiles always live in Postgres, so the connection is not optional
// even when schedules use the directory backend.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/schedbot/core/config"
	coredatabase "github.com/m3rciful/schedbot/core/database"
	"github.com/m3rciful/schedbot/core/logger"
)

// Options name the three stages. Nil hooks fall back to the real
// implementations; tests swap them for fakes.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
}

// Result carries what the stages produced.
type Result struct {
	DB *sqlx.DB
}

// Run executes the stages in order. The database handle is closed again
// if migrations fail, so the caller never receives a half-ready Result.
func (o Options) run() (*Result, error) {
	if err := o.LoggerInit(o.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	db, err := o.Connect(o.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if err := o.Migrate(o.Config.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}

// Run validates opts, fills in default stage implementations and
// executes the pipeline.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}
	if opts.Migrate == nil {
		opts.Migrate = coredatabase.RunMigrations
	}
	return opts.run()
}

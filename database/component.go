package database

import (
	"context"
	"fmt"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/database/migration"
	"github.com/kbukum/voicenotes/logger"
)

// Component owns the DB for the lifetime of the app.
type Component struct {
	cfg        Config
	log        *logger.Logger
	db         *DB
	migrations []migration.Source
	onStart    []func(ctx context.Context, db *DB) error
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithMigrations registers migrations applied on Start unless
// SkipMigrations is set.
func (c *Component) WithMigrations(src migration.Source) *Component {
	c.migrations = append(c.migrations, src)
	return c
}

// OnStart registers fn to run after migrations, e.g. seeding.
func (c *Component) OnStart(fn func(ctx context.Context, db *DB) error) *Component {
	c.onStart = append(c.onStart, fn)
	return c
}

// DB returns the handle, or nil before Start.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if !c.cfg.SkipMigrations {
		for _, src := range c.migrations {
			if err := migration.Up(db.gorm, src); err != nil {
				return fmt.Errorf("database migrate: %w", err)
			}
		}
		c.log.Info("Migrations applied", logger.Fields("sources", len(c.migrations)))
	}
	for _, fn := range c.onStart {
		if err := fn(ctx, db); err != nil {
			return fmt.Errorf("database start hook: %w", err)
		}
	}
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not initialized"}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("sqlite %s pool=%d", c.cfg.DSN, c.cfg.MaxOpenConns)
	if c.cfg.SkipMigrations {
		details += " migrations=off"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}

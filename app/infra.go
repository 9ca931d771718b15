package app

import (
	"context"
	"fmt"

	"github.com/kbukum/voicenotes/bootstrap"
	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/database"
	"github.com/kbukum/voicenotes/kafka"
	"github.com/kbukum/voicenotes/llm"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/note/sqlstore"
	"github.com/kbukum/voicenotes/observability"
	"github.com/kbukum/voicenotes/redis"
	"github.com/kbukum/voicenotes/storage"
	"github.com/kbukum/voicenotes/util"

	// Providers register themselves with their packages' registries.
	_ "github.com/kbukum/voicenotes/llm/gemini"
	_ "github.com/kbukum/voicenotes/llm/ollama"
	_ "github.com/kbukum/voicenotes/llm/openai"
	_ "github.com/kbukum/voicenotes/storage/local"
	_ "github.com/kbukum/voicenotes/storage/s3"
)

// TagCachePrefix namespaces generated tags below the configured redis key
// prefix.
const TagCachePrefix = "tags"

// Infra holds the infrastructure components enabled by the config. A nil
// field means the section is disabled.
type Infra struct {
	cfg *Config
	log *logger.Logger

	Tracing  *observability.Tracing
	Database *database.Component
	Redis    *redis.Component
	Storage  *storage.Component
	Kafka    *kafka.Component
}

// NewInfra builds, but does not start, the enabled components.
func NewInfra(cfg *Config, log *logger.Logger) *Infra {
	i := &Infra{cfg: cfg, log: log}
	i.Tracing = observability.NewTracing(cfg.Tracing, cfg.Name, cfg.Version, cfg.Environment, log)
	if cfg.Database.Enabled {
		seed := cfg.Database.Seed
		i.Database = database.NewComponent(cfg.Database, log).
			WithMigrations(sqlstore.Migrations).
			OnStart(func(ctx context.Context, db *database.DB) error {
				if !seed {
					return nil
				}
				return sqlstore.New(db).SeedIfEmpty(ctx)
			})
	}
	if cfg.Redis.Enabled {
		i.Redis = redis.NewComponent(cfg.Redis, log)
	}
	if cfg.Storage.Enabled {
		i.Storage = storage.NewComponent(cfg.Storage, log)
	}
	if cfg.Kafka.Enabled {
		i.Kafka = kafka.NewComponent(cfg.Kafka, log)
	}
	return i
}

// Components lists the enabled components in start order.
func (i *Infra) Components() []component.Component {
	out := []component.Component{i.Tracing}
	if i.Database != nil {
		out = append(out, i.Database)
	}
	if i.Redis != nil {
		out = append(out, i.Redis)
	}
	if i.Storage != nil {
		out = append(out, i.Storage)
	}
	if i.Kafka != nil {
		out = append(out, i.Kafka)
	}
	return out
}

// Register adds the components to a and records the chosen backends in the
// startup summary.
func (i *Infra) Register(a *bootstrap.App[*Config]) error {
	for _, c := range i.Components() {
		if err := a.RegisterComponent(c); err != nil {
			return err
		}
	}
	store := "memory"
	if i.Database != nil {
		store = "sqlite"
	}
	a.Summary.AddNote("Note store: %s", store)
	if i.cfg.LLM.Enabled {
		a.Summary.AddNote("LLM: %s %s, key %s", i.cfg.LLM.Provider, i.cfg.LLM.Model, util.MaskSecret(i.cfg.LLM.APIKey))
	} else {
		a.Summary.AddNote("LLM: disabled, AI features return errors")
	}
	return nil
}

// Repository returns the note repository. The database must be started.
func (i *Infra) Repository() (note.Repository, error) {
	if i.Database == nil {
		var opts []note.MemoryOption
		if i.cfg.Notes.Seed {
			opts = append(opts, note.WithSeed())
		}
		return note.NewMemoryRepository(opts...), nil
	}
	db := i.Database.DB()
	if db == nil {
		return nil, fmt.Errorf("database not started")
	}
	return sqlstore.New(db), nil
}

// LLM returns the configured provider with tracing on every attempt and
// retries plus a circuit breaker around each request, or nil when AI
// features are disabled.
func (i *Infra) LLM() (llm.Provider, error) {
	if !i.cfg.LLM.Enabled {
		return nil, nil
	}
	p, err := llm.New(i.cfg.LLM.Config)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return llm.WithResilience(llm.WithTracing(p, i.log), i.cfg.LLM.Config, i.log), nil
}

// NoteService assembles the note service over the started infrastructure.
func (i *Infra) NoteService() (*note.Service, error) {
	repo, err := i.Repository()
	if err != nil {
		return nil, err
	}
	opts := []note.Option{note.WithLogger(i.log)}

	provider, err := i.LLM()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, note.WithLLM(provider))
	}
	if i.Redis != nil {
		prefix := i.cfg.Redis.KeyPrefix + ":" + TagCachePrefix
		cache := redis.NewTypedStore[[]string](i.Redis.Client(), prefix)
		opts = append(opts, note.WithTagCache(cache, i.cfg.Redis.TagCacheTTL))
	}
	if i.Storage != nil {
		opts = append(opts, note.WithObjectStore(i.Storage))
	}
	if i.Kafka != nil {
		opts = append(opts, note.WithPublisher(i.Kafka))
	}
	return note.NewService(repo, opts...), nil
}

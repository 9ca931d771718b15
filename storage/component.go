package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/logger"
)

// Component owns the configured backend and exposes it once started.
type Component struct {
	cfg     Config
	log     *logger.Logger
	storage Storage
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage returns the backend, or nil when disabled or not started.
func (c *Component) Storage() Storage { return c.storage }

// Upload and URL let the component stand in for its backend before Start
// has run, so wiring code can hand it out early.
func (c *Component) Upload(ctx context.Context, path string, r io.Reader) error {
	if c.storage == nil {
		return fmt.Errorf("storage: not started")
	}
	return c.storage.Upload(ctx, path, r)
}

func (c *Component) URL(ctx context.Context, path string) (string, error) {
	if c.storage == nil {
		return "", fmt.Errorf("storage: not started")
	}
	return c.storage.URL(ctx, path)
}

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Storage disabled")
		return nil
	}
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.storage = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "disabled"}
	}
	if c.storage == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "storage not initialized"}
	}
	if _, err := c.storage.URL(ctx, ".health"); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("health probe failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	switch c.cfg.Provider {
	case ProviderS3:
		details += " bucket=" + c.cfg.Bucket
	case ProviderLocal:
		details += " path=" + c.cfg.BasePath
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}

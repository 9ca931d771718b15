package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
)

// Component owns the producer and publishes note events while running.
// Events published before Start or after Stop are dropped with an error.
type Component struct {
	cfg       Config
	log       *logger.Logger
	mu        sync.RWMutex
	producer  *Producer
	publisher *NotePublisher
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
	_ note.Publisher        = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

func (c *Component) Name() string { return "kafka" }

func (c *Component) Start(context.Context) error {
	p, err := NewProducer(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("kafka start: %w", err)
	}
	c.mu.Lock()
	c.producer = p
	c.publisher = NewNotePublisher(p, c.cfg.ClientID)
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	p := c.producer
	c.producer, c.publisher = nil, nil
	c.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

// Publish implements note.Publisher.
func (c *Component) Publish(ctx context.Context, ev note.ChangeEvent) error {
	c.mu.RLock()
	pub := c.publisher
	c.mu.RUnlock()
	if pub == nil {
		return fmt.Errorf("kafka: not started")
	}
	return pub.Publish(ctx, ev)
}

// Health dials the first broker and asks for cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	running := c.producer != nil
	c.mu.RUnlock()
	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka not started"}
	}

	dialer, err := NewDialer(&c.cfg)
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("dialer: %v", err)}
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("broker unreachable: %v", err)}
	}
	defer conn.Close() //nolint:errcheck // health probe
	if _, err := conn.Brokers(); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("broker metadata: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%v topic=%s", c.cfg.Brokers, c.cfg.Topic),
	}
}

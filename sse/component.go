package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/logger"
)

// Component runs a Hub under the component registry.
type Component struct {
	hub  *Hub
	path string
	wg   sync.WaitGroup
	once sync.Once
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component with a fresh hub. path is only shown in
// the startup summary.
func NewComponent(path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(log), path: path}
}

func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(context.Context) error {
	c.once.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.hub.Run()
		}()
	})
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "SSE Hub", Type: "sse", Details: "path=" + c.path}
}

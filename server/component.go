package server

import (
	"context"

	"github.com/kbukum/voicenotes/component"
)

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

func (s *Server) Name() string { return "http-server" }

func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	if !bound {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *Server) Describe() component.Description {
	return component.Description{Name: "HTTP Server", Type: "server", Details: s.Addr(), Port: s.cfg.Port}
}

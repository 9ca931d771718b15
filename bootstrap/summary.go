package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/voicenotes/component"
)

// Summary renders the startup report: infrastructure, routes and live
// health, collected from the component registry.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	notes           []string
}

func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// AddNote appends a free-form line, for example the active LLM provider.
func (s *Summary) AddNote(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

// Render writes the summary to w.
func (s *Summary) Render(ctx context.Context, w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var infra []component.Description
	var routes []component.Route
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			infra = append(infra, d.Describe())
		}
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}

	if len(infra) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, d := range infra {
			fmt.Fprintf(w, "   %s %s: %s\n", branch(i, len(infra)), d.Name, d.Details)
		}
	}
	if len(s.notes) > 0 {
		fmt.Fprintf(w, "\n📝 Notes\n")
		for i, n := range s.notes {
			fmt.Fprintf(w, "   %s %s\n", branch(i, len(s.notes)), n)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	health := registry.HealthAll(ctx)
	if len(health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health\n")
		healthy := 0
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(health)), healthIcon(h.Status), h.Name,
				strings.ToLower(string(h.Status)), msg)
			if h.Status == component.StatusHealthy {
				healthy++
			}
		}
		if healthy == len(health) {
			fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(health))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(health))
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	default:
		return "❌"
	}
}

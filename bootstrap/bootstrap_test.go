package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/config"
	"github.com/kbukum/voicenotes/logger"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
}

type fakeComponent struct {
	name     string
	startErr error
	status   component.HealthStatus
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Start(context.Context) error {
	*f.events = append(*f.events, "start "+f.name)
	return f.startErr
}
func (f *fakeComponent) Stop(context.Context) error {
	*f.events = append(*f.events, "stop "+f.name)
	return nil
}
func (f *fakeComponent) Health(context.Context) component.Health {
	return component.Health{Name: f.name, Status: f.status}
}
func (f *fakeComponent) Describe() component.Description {
	return component.Description{Name: strings.ToUpper(f.name), Details: "details of " + f.name}
}

func newTestApp(t *testing.T, out *bytes.Buffer) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "voicenotes", Version: "1.0.0"}}
	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithSummaryOutput(out), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewAppValidates(t *testing.T) {
	if _, err := NewApp(&testConfig{}, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestRunTaskLifecycle(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	var events []string
	_ = app.RegisterComponent(&fakeComponent{name: "db", status: component.StatusHealthy, events: &events})
	_ = app.RegisterComponent(&fakeComponent{name: "cache", status: component.StatusDegraded, events: &events})

	app.OnStart(func(context.Context) error { events = append(events, "on start"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		events = append(events, "configure "+a.Cfg.Name)
		return a.RegisterComponent(&fakeComponent{name: "http", status: component.StatusHealthy, events: &events})
	})
	app.OnReady(func(context.Context) error { events = append(events, "ready"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "on stop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	want := "start db,start cache,on start,configure voicenotes,start http,ready,task,on stop,stop http,stop cache,stop db"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s", got)
	}
	for _, s := range []string{"voicenotes 1.0.0 started", "DB: details of db", "cache: degraded", "Some components have issues (2/3 healthy)"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("summary missing %q:\n%s", s, out.String())
		}
	}
}

func TestStartupFailureStopsStartedComponents(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	var events []string
	_ = app.RegisterComponent(&fakeComponent{name: "db", status: component.StatusHealthy, events: &events})
	_ = app.RegisterComponent(&fakeComponent{name: "kafka", startErr: errors.New("no brokers"), events: &events})

	err := app.RunTask(context.Background(), func(context.Context) error {
		t.Error("task should not run")
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "no brokers") {
		t.Fatalf("err = %v", err)
	}
	if got := strings.Join(events, ","); got != "start db,start kafka,stop db" {
		t.Errorf("events = %s", got)
	}
}

func TestRunTaskReturnsTaskError(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	want := errors.New("task failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("err = %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

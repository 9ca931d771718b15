// Command voicenotes-mcp serves the note tools over the Model Context
// Protocol on stdin and stdout. Logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/voicenotes/app"
	"github.com/kbukum/voicenotes/bootstrap"
	"github.com/kbukum/voicenotes/config"
	"github.com/kbukum/voicenotes/mcpserver"
	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/version"
)

const serviceName = "voicenotes"

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	envFile := flag.String("env", "", "path to a .env file")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "voicenotes-mcp:", err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &app.Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	// stdout carries the protocol
	cfg.Logging.Output = "stderr"

	a, err := bootstrap.NewApp(cfg, bootstrap.WithoutSummary())
	if err != nil {
		return err
	}
	infra := app.NewInfra(cfg, a.Logger)
	if err := infra.Register(a); err != nil {
		return err
	}

	var notes *note.Service
	a.OnConfigure(func(context.Context, *bootstrap.App[*app.Config]) error {
		svc, err := infra.NoteService()
		notes = svc
		return err
	})
	return a.RunTask(context.Background(), func(ctx context.Context) error {
		return mcpserver.New(notes, cfg.Name, cfg.Version, a.Logger).ServeStdio(ctx, os.Stdin, os.Stdout)
	})
}

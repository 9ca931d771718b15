// Command voicenotes serves the notes API, AI features and dictation
// sessions over HTTP.
//
//	voicenotes [-config config.yml] [-env .env]
//	voicenotes token -sub alice -scopes notes:read,notes:write
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/voicenotes/app"
	"github.com/kbukum/voicenotes/auth/jwt"
	"github.com/kbukum/voicenotes/bootstrap"
	"github.com/kbukum/voicenotes/config"
	"github.com/kbukum/voicenotes/version"
)

const serviceName = "voicenotes"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "voicenotes:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := flags.String("config", "", "path to config.yml (default: search ./config.yml, ./config/config.yml)")
	envFile := flags.String("env", "", "path to a .env file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		return err
	}
	if flags.Arg(0) == "token" {
		return issueToken(cfg, flags.Args()[1:], stdout)
	}

	a, err := bootstrap.NewApp(cfg, bootstrap.WithGracefulTimeout(20*time.Second))
	if err != nil {
		return err
	}
	infra := app.NewInfra(cfg, a.Logger)
	if err := infra.Register(a); err != nil {
		return err
	}
	if err := app.RegisterHTTP(a, infra); err != nil {
		return err
	}
	return a.Run(context.Background())
}

func loadConfig(configFile, envFile string) (*app.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &app.Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	return cfg, nil
}

// issueToken prints a bearer token signed with the configured secret.
func issueToken(cfg *app.Config, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := flags.String("sub", "", "token subject")
	scopes := flags.String("scopes", "", "comma separated scopes; empty grants all")
	ttl := flags.Duration("ttl", 0, "token lifetime (default from auth.jwt.ttl)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("token: -sub is required")
	}

	jwtCfg := cfg.Auth.JWT
	if *ttl > 0 {
		jwtCfg.TTL = *ttl
	}
	svc, err := jwt.NewService(jwtCfg)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	var granted []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}
	token, err := svc.Issue(*subject, granted)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

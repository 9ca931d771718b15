package app

import (
	"context"

	"github.com/kbukum/voicenotes/api"
	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/auth/jwt"
	"github.com/kbukum/voicenotes/bootstrap"
	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/server"
	"github.com/kbukum/voicenotes/sse"
	"github.com/kbukum/voicenotes/util"
)

// RegisterHTTP adds the event hub and the dictation sessions, and mounts the
// API once the infrastructure is up. The HTTP server is registered during
// configuration and started after it.
func RegisterHTTP(a *bootstrap.App[*Config], infra *Infra) error {
	cfg := a.Cfg

	var validator auth.TokenValidator
	if cfg.Auth.Enabled {
		svc, err := jwt.NewService(cfg.Auth.JWT)
		if err != nil {
			return err
		}
		validator = svc
	}

	events := sse.NewComponent(api.Prefix+"/dictation/:surface/events", a.Logger)
	sessions := dictation.NewSessions(cfg.Dictation.Capability(), cfg.Dictation.SessionsConfig,
		sse.NewDictationSink(events.Hub()), a.Logger)
	if err := a.RegisterComponent(events); err != nil {
		return err
	}
	if err := a.RegisterComponent(sessions); err != nil {
		return err
	}
	if cfg.Dictation.Provider == DictationDeepgram {
		a.Summary.AddNote("Dictation provider: deepgram %s, key %s", cfg.Dictation.Deepgram.Model, util.MaskSecret(cfg.Dictation.Deepgram.APIKey))
	} else {
		a.Summary.AddNote("Dictation provider: %s", cfg.Dictation.Provider)
	}
	// Open event streams never finish on their own; end them before the
	// server drains its connections.
	a.OnStop(func(context.Context) error {
		events.Hub().Stop()
		return nil
	})

	a.OnConfigure(func(_ context.Context, a *bootstrap.App[*Config]) error {
		notes, err := infra.NoteService()
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, a.Logger)
		srv.RegisterDefaultEndpoints(cfg.Name, a.Components.HealthAll)
		api.Register(srv.Engine(), api.Deps{
			Notes:               notes,
			Sessions:            sessions,
			Hub:                 events.Hub(),
			Validator:           validator,
			AllowedOrigins:      cfg.Server.CORS.AllowedOrigins,
			AIRequestsPerMinute: cfg.Server.AIRequestsPerMinute,
			Log:                 a.Logger,
		})
		return a.RegisterComponent(srv)
	})
	return nil
}

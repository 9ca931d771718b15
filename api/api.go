// Package api exposes notes, AI features and dictation sessions over HTTP
// under /api/v1.
package api

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/server"
	"github.com/kbukum/voicenotes/server/middleware"
	"github.com/kbukum/voicenotes/sse"
	"github.com/kbukum/voicenotes/validation"
)

// Scopes checked when auth is enabled.
const (
	ScopeNotesRead  = "notes:read"
	ScopeNotesWrite = "notes:write"
	ScopeAI         = "ai"
	ScopeDictation  = "dictation"
)

// Prefix is the root of every API route.
const Prefix = "/api/v1"

var surfacePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

const maxSurfaceLen = 128

// Deps are the services behind the API. Sessions and Hub may be nil, in
// which case the dictation routes are not mounted.
type Deps struct {
	Notes    *note.Service
	Sessions *dictation.Sessions
	Hub      *sse.Hub
	// Validator enables bearer-token auth on every API route.
	Validator auth.TokenValidator
	// AllowedOrigins are accepted for the audio websocket besides the
	// server's own host.
	AllowedOrigins []string
	// AIRequestsPerMinute limits tag generation and summaries per caller.
	AIRequestsPerMinute int
	Log                 *logger.Logger
}

// Register mounts the API on r.
func Register(r gin.IRouter, d Deps) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	log := d.Log.WithComponent("api")

	v1 := r.Group(Prefix)
	if d.Validator != nil {
		v1.Use(middleware.Auth(d.Validator))
	}
	aiLimit := middleware.RateLimit(d.AIRequestsPerMinute)

	nh := &notesHandler{notes: d.Notes}
	read := middleware.RequireScope(ScopeNotesRead)
	write := middleware.RequireScope(ScopeNotesWrite)
	notes := v1.Group("/notes")
	notes.GET("", read, nh.list)
	notes.POST("", write, nh.create)
	notes.GET("/:id", read, nh.get)
	notes.PUT("/:id", write, nh.update)
	notes.DELETE("/:id", write, nh.delete)
	notes.POST("/:id/tags/generate", write, middleware.RequireScope(ScopeAI), aiLimit, nh.generateTags)
	notes.POST("/:id/export", read, nh.export)

	ah := &aiHandler{notes: d.Notes}
	ai := v1.Group("/ai", middleware.RequireScope(ScopeAI), aiLimit)
	ai.POST("/tags", ah.tags)
	ai.POST("/summary", ah.summary)

	if d.Sessions != nil && d.Hub != nil {
		dh := newDictationHandler(d.Sessions, d.Hub, d.AllowedOrigins, log)
		dict := v1.Group("/dictation/:surface", middleware.RequireScope(ScopeDictation), validSurface)
		dict.POST("/start", dh.start)
		dict.POST("/stop", dh.stop)
		dict.DELETE("", dh.teardown)
		dict.GET("/state", dh.state)
		dict.GET("/events", dh.events)
		dict.GET("/audio", dh.audio)
		dict.POST("/results", dh.results)
	}
}

// validSurface rejects surface ids that could not be used as SSE topics.
func validSurface(c *gin.Context) {
	surface := c.Param("surface")
	err := validation.New().
		Required("surface", surface).
		MaxLength("surface", surface, maxSurfaceLen).
		Pattern("surface", surface, surfacePattern).
		Validate()
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Next()
}

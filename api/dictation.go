package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/dictation/relay"
	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/server"
	"github.com/kbukum/voicenotes/sse"
)

// maxAudioFrame bounds one websocket audio message.
const maxAudioFrame = 1 << 20

type dictationHandler struct {
	sessions *dictation.Sessions
	hub      *sse.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

type startRequest struct {
	// Seed is the surface's current content. Dictated text is appended to it.
	Seed string `json:"seed"`
}

type stateResponse struct {
	Surface    string          `json:"surface"`
	State      dictation.State `json:"state"`
	Transcript string          `json:"transcript"`
}

func newDictationHandler(sessions *dictation.Sessions, hub *sse.Hub, allowedOrigins []string, log *logger.Logger) *dictationHandler {
	return &dictationHandler{
		sessions: sessions,
		hub:      hub,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 1 << 10,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts same-host requests, requests without an Origin
// header and the listed origins. "*" accepts everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *dictationHandler) start(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := server.BindJSON(c, &req); err != nil {
			server.RespondWithError(c, err)
			return
		}
	}
	surface := c.Param("surface")
	// The session outlives this request and must not inherit its cancellation.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.sessions.Begin(ctx, surface, req.Seed); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, h.snapshot(surface))
}

func (h *dictationHandler) stop(c *gin.Context) {
	surface := c.Param("surface")
	if err := h.sessions.End(surface); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, h.snapshot(surface))
}

func (h *dictationHandler) teardown(c *gin.Context) {
	if err := h.sessions.Teardown(c.Request.Context(), c.Param("surface")); err != nil {
		h.log.WithContext(c.Request.Context()).Warn("Dictation teardown incomplete",
			logger.Fields("surface", c.Param("surface"), "error", err.Error()))
	}
	server.RespondNoContent(c)
}

func (h *dictationHandler) state(c *gin.Context) {
	server.RespondOK(c, h.snapshot(c.Param("surface")))
}

func (h *dictationHandler) snapshot(surface string) stateResponse {
	resp := stateResponse{Surface: surface, State: dictation.StateIdle}
	if m, ok := h.sessions.Lookup(surface); ok {
		resp.State = m.State()
		resp.Transcript = m.Transcript()
	}
	return resp
}

// events streams the surface's transcript, state, error and notification
// events. A client_id query parameter lets a reconnecting client replace its
// previous stream.
func (h *dictationHandler) events(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	sse.Serve(h.hub, c.Writer, c.Request, clientID, sse.DictationTopic(c.Param("surface")))
}

// audio forwards binary websocket frames to the surface's recognizer. Frames
// that arrive while no session is live are dropped.
func (h *dictationHandler) audio(c *gin.Context) {
	surface := c.Param("surface")
	log := h.log.WithContext(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		log.Debug("Audio upgrade failed", logger.Fields("surface", surface, "error", err.Error()))
		return
	}
	defer conn.Close() //nolint:errcheck // connection is done either way
	conn.SetReadLimit(maxAudioFrame)

	dropped := 0
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Audio stream ended", logger.Fields("surface", surface, "error", err.Error()))
			}
			break
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		err = h.sessions.SendAudio(surface, data)
		switch {
		case err == nil:
		case stderrors.Is(err, dictation.ErrNoSession):
			dropped++
		case stderrors.Is(err, dictation.ErrAudioNotSupported):
			msg := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "provider does not accept audio")
			_ = conn.WriteMessage(websocket.CloseMessage, msg)
			return
		default:
			log.Warn("Audio forward failed", logger.Fields("surface", surface, "error", err.Error()))
		}
	}
	if dropped > 0 {
		log.Debug("Audio frames dropped without a live session", logger.Fields("surface", surface, "frames", dropped))
	}
}

// results accepts recognizer callbacks relayed by a browser.
func (h *dictationHandler) results(c *gin.Context) {
	var msg relay.Message
	if err := server.BindJSON(c, &msg); err != nil {
		server.RespondWithError(c, err)
		return
	}
	ev, err := msg.Event()
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := h.sessions.Push(c.Param("surface"), ev); err != nil {
		server.RespondWithError(c, pushError(err))
		return
	}
	c.Status(http.StatusAccepted)
}

func pushError(err error) error {
	switch {
	case stderrors.Is(err, dictation.ErrNoSession), stderrors.Is(err, relay.ErrClosed):
		return errors.Conflict("No active dictation session.").WithCause(err)
	case stderrors.Is(err, relay.ErrBufferFull):
		return errors.ServiceUnavailable("dictation relay").WithCause(err)
	case stderrors.Is(err, dictation.ErrPushNotSupported):
		return errors.Conflict("The active speech provider does not accept relayed results.").WithCause(err)
	default:
		return errors.DictationProviderError(err)
	}
}

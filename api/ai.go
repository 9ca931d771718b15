package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/server"
)

type aiHandler struct {
	notes *note.Service
}

type tagsRequest struct {
	Content string `json:"content"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type summaryRequest struct {
	// IDs selects the notes to summarize. Empty means every note.
	IDs []string `json:"ids" binding:"max=100"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// tags generates tags for free text without touching any note. Blank
// content is reported by the service as EMPTY_CONTENT.
func (h *aiHandler) tags(c *gin.Context) {
	var req tagsRequest
	if err := server.BindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	tags, err := h.notes.GenerateTags(c.Request.Context(), req.Content)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, tagsResponse{Tags: tags})
}

func (h *aiHandler) summary(c *gin.Context) {
	var req summaryRequest
	if c.Request.ContentLength != 0 {
		if err := server.BindJSON(c, &req); err != nil {
			server.RespondWithError(c, err)
			return
		}
	}
	summary, err := h.notes.Summarize(c.Request.Context(), req.IDs)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, summaryResponse{Summary: summary})
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/server"
)

type notesHandler struct {
	notes *note.Service
}

// exportResponse is the body of a successful export.
type exportResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (h *notesHandler) list(c *gin.Context) {
	q := note.Query{Search: c.Query("q")}
	notes, err := h.notes.List(c.Request.Context(), q)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, notes, &server.Meta{Total: len(notes), Query: q.Search})
}

func (h *notesHandler) get(c *gin.Context) {
	n, err := h.notes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

func (h *notesHandler) create(c *gin.Context) {
	var in note.Input
	if err := server.BindJSON(c, &in); err != nil {
		server.RespondWithError(c, err)
		return
	}
	n, err := h.notes.Create(c.Request.Context(), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header("Location", Prefix+"/notes/"+n.ID)
	server.RespondCreated(c, n)
}

func (h *notesHandler) update(c *gin.Context) {
	var in note.Input
	if err := server.BindJSON(c, &in); err != nil {
		server.RespondWithError(c, err)
		return
	}
	n, err := h.notes.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

func (h *notesHandler) delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// generateTags merges AI-generated tags into the stored note.
func (h *notesHandler) generateTags(c *gin.Context) {
	n, err := h.notes.ApplyGeneratedTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, n)
}

func (h *notesHandler) export(c *gin.Context) {
	id := c.Param("id")
	url, err := h.notes.ExportNote(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, exportResponse{ID: id, URL: url})
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErr "boardtex/internal/pkg/errors"
	"boardtex/internal/pkg/response"
	"boardtex/internal/store"
)

var errBadArtifactType = fmt.Errorf("%w: type must be tex or pdf", appErr.ErrInvalid)

func errNoPDF(detail string) error {
	if detail == "" {
		detail = "no pdf artifact"
	}
	return fmt.Errorf("%w: %s", appErr.ErrNotFound, detail)
}

type NoteHandler struct {
	notes *store.NoteStore
}

func NewNoteHandler(notes *store.NoteStore) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func (h *NoteHandler) List(c *gin.Context) {
	limit := parseUintQuery(c, "limit", 50)
	offset := parseUintQuery(c, "offset", 0)
	items, err := h.notes.List(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "count": len(items)})
}

func (h *NoteHandler) Get(c *gin.Context) {
	doc, err := h.notes.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"name":           doc.Name,
		"status":         doc.Status,
		"source":         doc.Source,
		"fragment_count": doc.FragmentCount,
		"photo_count":    doc.PhotoCount,
		"compile_detail": doc.CompileDetail,
		"has_pdf":        doc.HasPDF(),
		"ctime":          doc.Ctime,
	})
}

// Download streams one artifact; type=tex (default) or type=pdf.
func (h *NoteHandler) Download(c *gin.Context) {
	name := c.Param("name")
	doc, err := h.notes.Get(c.Request.Context(), name)
	if err != nil {
		handleError(c, err)
		return
	}
	switch c.DefaultQuery("type", "tex") {
	case "tex":
		c.Header("Content-Disposition", `attachment; filename="`+name+`.tex"`)
		c.Data(http.StatusOK, "application/x-tex", []byte(doc.Source))
	case "pdf":
		if !doc.HasPDF() {
			handleError(c, errNoPDF(doc.CompileDetail))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", doc.PDF)
	default:
		handleError(c, errBadArtifactType)
	}
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("name")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func parseUintQuery(c *gin.Context, key string, fallback uint) uint {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(v)
}

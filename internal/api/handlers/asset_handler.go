package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ProhorTaim/Egregoria/internal/domain"
	"github.com/ProhorTaim/Egregoria/internal/lfs"
)

// AssetHandler serves manifest entries out of a reconciled checkout.
type AssetHandler struct {
	baseDir string
	entries []domain.AssetPath
	known   map[domain.AssetPath]struct{}
}

func NewAssetHandler(baseDir string, entries []domain.AssetPath) *AssetHandler {
	known := make(map[domain.AssetPath]struct{}, len(entries))
	for _, e := range entries {
		known[e] = struct{}{}
	}
	return &AssetHandler{baseDir: baseDir, entries: entries, known: known}
}

type manifestEntry struct {
	Path  string `json:"path"`
	State string `json:"state"`
}

// GetManifest lists every entry with its local state.
func (h *AssetHandler) GetManifest(c *gin.Context) {
	out := make([]manifestEntry, 0, len(h.entries))
	servable := 0
	for _, e := range h.entries {
		state, err := lfs.Inspect(e.LocalPath(h.baseDir))
		label := state.String()
		if err != nil {
			label = "error"
		} else if state == domain.Present {
			servable++
		}
		out = append(out, manifestEntry{Path: e.String(), State: label})
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(out),
		"servable": servable,
		"entries":  out,
	})
}

// GetAsset streams one asset. Missing files and pointer stubs answer 404 so
// clients never copy a stub from a mirror.
func (h *AssetHandler) GetAsset(c *gin.Context) {
	p := domain.NewAssetPath(strings.TrimPrefix(c.Param("path"), "/"))
	if _, ok := h.known[p]; !ok {
		errorResponse(c, http.StatusNotFound, "not in manifest: "+p.String())
		return
	}

	local := p.LocalPath(h.baseDir)
	state, err := lfs.Inspect(local)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	switch state {
	case domain.Absent:
		errorResponse(c, http.StatusNotFound, "missing locally: "+p.String())
		return
	case domain.PlaceholderStub:
		errorResponse(c, http.StatusNotFound, "placeholder only: "+p.String())
		return
	}

	c.File(local)
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

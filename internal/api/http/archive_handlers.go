package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/filedesk/internal/providers/filesystem"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// CreateArchive packs selected entries into a new archive next to them.
func (h *Handlers) CreateArchive(c *gin.Context) {
	var req types.ArchiveRequest
	if err := h.decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	done := h.metrics.Track("create_archive")
	res, err := h.archives.BuildArchive(c.Request.Context(), filesystem.ArchiveOptions{
		Dir:     req.Path,
		Name:    req.ArchiveName,
		Format:  req.FormatName(),
		Entries: req.Entries(),
	})
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.Archive(res.Format, res.Size)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"archiveName": res.ArchiveName,
		"path":        res.Path,
		"method":      res.Method,
		"format":      res.Format,
		"filesCount":  res.FilesCount,
		"size":        res.Size,
		"sizeHuman":   res.SizeHuman,
		"message":     fmt.Sprintf("Archive %s created", res.ArchiveName),
	})
}

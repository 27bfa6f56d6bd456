package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// List returns the children of ?path=.
func (h *Handlers) List(c *gin.Context) {
	done := h.metrics.Track("list")
	listing, err := h.tree.List(c.Request.Context(), c.Query("path"))
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"files":       listing.Files,
		"currentPath": listing.CurrentPath,
	})
}

// CreateDirectory creates a folder.
func (h *Handlers) CreateDirectory(c *gin.Context) {
	var req types.CreateDirectoryRequest
	if err := h.decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	done := h.metrics.Track("create_directory")
	name, err := h.tree.CreateDirectory(c.Request.Context(), req.Path, req.Name)
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"folderName": name,
		"message":    fmt.Sprintf("Folder %s created", name),
	})
}

// Delete removes one file or directory.
func (h *Handlers) Delete(c *gin.Context) {
	var req types.DeleteRequest
	if err := h.decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	done := h.metrics.Track("delete")
	msg, err := h.tree.Delete(c.Request.Context(), req.Path, req.Name, req.IsDirectory)
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
	})
}

// DeleteMany removes several items under one parent. Items fail
// independently; the response lists what was deleted and what was not.
func (h *Handlers) DeleteMany(c *gin.Context) {
	var req types.DeleteManyRequest
	if err := h.decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if len(req.Names) == 0 {
		h.fail(c, types.Errorf(types.KindInvalidArgument, "delete", "", "no items selected"))
		return
	}

	done := h.metrics.Track("delete_many")
	results := h.tree.DeleteMany(c.Request.Context(), req.Path, req.Names)

	deleted := make([]string, 0, len(results))
	failed := make([]gin.H, 0)
	var messages []string
	firstCode := ""
	for _, r := range results {
		if r.Success {
			deleted = append(deleted, r.Name)
			continue
		}
		failed = append(failed, gin.H{"name": r.Name, "error": r.Error, "code": r.Code})
		messages = append(messages, fmt.Sprintf("%s: %s", r.Name, r.Error))
		if firstCode == "" {
			firstCode = r.Code
		}
	}

	if len(failed) == 0 {
		done(nil)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"deleted": deleted,
			"failed":  failed,
			"message": fmt.Sprintf("Deleted %d item(s)", len(deleted)),
		})
		return
	}

	kind := types.Kind(firstCode)
	done(types.New(kind, "delete", ""))

	status := http.StatusOK
	if len(deleted) == 0 {
		status = statusFor(kind)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   strings.Join(messages, "; "),
		"code":    firstCode,
		"deleted": deleted,
		"failed":  failed,
	})
}

// Move renames an item.
func (h *Handlers) Move(c *gin.Context) {
	var req types.MoveRequest
	if err := h.decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	done := h.metrics.Track("move")
	res, err := h.tree.Move(c.Request.Context(), req.Source, req.Destination)
	done(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"source":      res.Source,
		"destination": res.Destination,
		"message":     "Moved successfully",
	})
}

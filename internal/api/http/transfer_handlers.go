package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filedesk/internal/providers/transfer"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// uploadFields are the multipart field names accepted for files.
var uploadFields = []string{"files[]", "files", "file"}

// Upload stores the files of a multipart submission.
func (h *Handlers) Upload(c *gin.Context) {
	if h.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	}
	if err := c.Request.ParseMultipartForm(h.cfg.MultipartMemory); err != nil {
		h.fail(c, multipartError(err))
		return
	}
	form := c.Request.MultipartForm
	defer form.RemoveAll()

	var items []transfer.UploadItem
	for _, field := range uploadFields {
		for _, fh := range form.File[field] {
			items = append(items, uploadItem(fh))
		}
	}
	if len(items) == 0 {
		h.fail(c, types.Errorf(types.KindInvalidArgument, "upload", "", "no files were submitted"))
		return
	}

	done := h.metrics.Track("upload")
	res, err := h.transfer.Upload(c.Request.Context(), formValue(form, "path"), items)
	if err != nil {
		done(err)
		h.fail(c, err)
		return
	}

	var total int64
	for _, it := range res.Items {
		if it.Error == "" {
			total += it.Size
		}
	}
	h.metrics.Transfer(monitoring.DirectionUpload, total)

	if !res.Succeeded() {
		failure := types.Errorf(types.KindTransport, "upload", res.Dir, "no files were uploaded: %s", res.Err())
		done(failure)
		h.logger.Warn("Upload batch failed", zap.String("path", res.Dir), zap.Strings("warnings", res.Warnings))
		body := errorBody(types.KindTransport, failure.Message())
		body["items"] = res.Items
		c.JSON(statusFor(types.KindTransport), body)
		return
	}
	done(nil)

	body := gin.H{
		"success":  true,
		"uploaded": res.Uploaded,
		"path":     res.Dir,
		"items":    res.Items,
		"message":  fmt.Sprintf("Uploaded %d file(s)", len(res.Uploaded)),
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	c.JSON(http.StatusOK, body)
}

func uploadItem(fh *multipart.FileHeader) transfer.UploadItem {
	return transfer.UploadItem{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return types.Errorf(types.KindTransport, "upload", "", "request exceeds the %d byte upload limit", tooLarge.Limit)
	}
	return types.Errorf(types.KindTransport, "upload", "", "malformed multipart request")
}

// DownloadFile streams one file as an attachment.
func (h *Handlers) DownloadFile(c *gin.Context) {
	ctx := c.Request.Context()
	done := h.metrics.Track("download_file")

	d, err := h.transfer.OpenFile(ctx, c.Query("path"), c.Query("name"))
	if err != nil {
		done(err)
		h.fail(c, err)
		return
	}
	defer d.Close()

	setDownloadHeaders(c, d.Name, d.ContentType, d.Size)
	c.Header("Last-Modified", d.ModTime.UTC().Format(http.TimeFormat))
	c.Status(http.StatusOK)

	n, err := d.Stream(ctx, c.Writer, h.cfg.ChunkSize)
	h.metrics.Transfer(monitoring.DirectionDownload, n)
	h.transfer.LogDownload(d.Path, n, err)
	done(err)
}

// DownloadDirectory archives a directory into a temporary file and streams
// it. The temporary file is removed on every exit path.
func (h *Handlers) DownloadDirectory(c *gin.Context) {
	ctx := c.Request.Context()
	done := h.metrics.Track("download_directory")

	tmp, err := h.archives.BuildDirectoryDownload(ctx, c.Query("path"), c.Query("name"), c.Query("format"))
	if err != nil {
		done(err)
		h.fail(c, err)
		return
	}
	defer func() {
		if err := tmp.Cleanup(); err != nil {
			h.logger.Error("Failed to remove staged archive", zap.String("file", tmp.Path), zap.Error(err))
		}
	}()
	h.metrics.Archive(tmp.Format, tmp.Size)

	setDownloadHeaders(c, tmp.DownloadName, tmp.ContentType, tmp.Size)
	c.Status(http.StatusOK)

	n, err := transfer.StreamFile(ctx, c.Writer, tmp.Path, h.cfg.ChunkSize)
	h.metrics.Transfer(monitoring.DirectionDownload, n)
	if err != nil {
		h.logger.Warn("Directory download interrupted", zap.String("name", tmp.DownloadName), zap.Int64("bytes", n), zap.Error(err))
	}
	done(err)
}

func setDownloadHeaders(c *gin.Context, name, contentType string, size int64) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(size, 10))
	c.Header("Content-Disposition", transfer.ContentDisposition(name))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("X-Content-Type-Options", "nosniff")
}

// boolQuery reads a truthy query flag such as ?usage=true or ?usage=1.
func boolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}

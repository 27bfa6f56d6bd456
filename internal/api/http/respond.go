package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/api/middleware"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/shared/types"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind types.Kind) int {
	switch kind {
	case types.KindOutsideRoot, types.KindPermissionDenied:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindAlreadyExists:
		return http.StatusConflict
	case types.KindNotADirectory, types.KindNotAFile, types.KindTransport, types.KindInvalidArgument:
		return http.StatusBadRequest
	case types.KindFormatUnsupported:
		return http.StatusUnsupportedMediaType
	case types.KindEmptyDirectory, types.KindNoValidEntries:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the failure envelope shared by every endpoint.
func errorBody(kind types.Kind, message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
		"code":    string(kind),
	}
}

// fail logs err and writes the failure envelope. Internal errors are
// reported to the client with a generic message only.
func (h *Handlers) fail(c *gin.Context, err error) {
	kind := types.KindOf(err)
	fields := []zap.Field{
		zap.String("route", c.FullPath()),
		zap.String("code", string(kind)),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	}
	switch kind {
	case types.KindInternal:
		h.logger.Error("Request failed", fields...)
	case types.KindOutsideRoot:
		h.logger.Warn("Path outside storage root", append(fields, zap.String("query", c.Request.URL.RawQuery))...)
	default:
		h.logger.Debug("Request rejected", fields...)
	}
	c.AbortWithStatusJSON(statusFor(kind), errorBody(kind, types.MessageOf(err)))
}

// decodeJSON reads a size-capped JSON body into v.
func (h *Handlers) decodeJSON(c *gin.Context, v any) error {
	limit := int64(h.jsonLimit.MaxSize())
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		return types.Errorf(types.KindTransport, "decode", "", "reading request body: %v", err)
	}
	if err := h.jsonLimit.ValidateSize(body); err != nil {
		return types.E(types.KindTransport, "decode", "", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return types.Errorf(types.KindTransport, "decode", "", "request body is empty")
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return types.Errorf(types.KindTransport, "decode", "", "invalid JSON body")
	}
	return nil
}

// Recovery converts panics into the internal error envelope.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("Panic recovered",
			zap.Any("panic", rec),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(types.KindInternal, "internal error"))
	})
}

// NoRoute answers unknown paths with the JSON envelope.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorBody(types.KindNotFound, "endpoint not found"))
}

// NoMethod answers known paths called with the wrong method.
func NoMethod(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, errorBody(types.KindInvalidArgument, "method not allowed"))
}

// Package handler is the HTTP boundary: route registration, request
// decoding, and the mapping from usecase errors to status codes and JSON
// error bodies.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"empath-relay/internal/config"
	"empath-relay/internal/usecase"
)

const requestIDHeader = "X-Request-Id"

// ChatUseCase is the chat flow consumed by the HTTP boundary.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
	Model       string `json:"model"`
}

type chatResponse struct {
	Role   string `json:"role"`
	Text   string `json:"text"`
	Crisis bool   `json:"crisis"`
}

type Handler struct {
	chat  ChatUseCase
	view  config.DebugView
	debug bool
	log   *logrus.Logger
}

func NewHandler(chat ChatUseCase, view config.DebugView, debug bool, log *logrus.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	if log == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &Handler{chat: chat, view: view, debug: debug, log: log}, nil
}

// Router builds the gin engine with logging, recovery and CORS middleware
// and all routes registered.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(h.requestLogger())
	r.Use(gin.CustomRecovery(h.recovered))
	r.Use(cors.Default())

	r.POST("/api/chat", h.handleChat)
	r.GET("/debug/env", h.handleDebugEnv)
	r.GET("/health", handleHealth)
	return r
}

func (h *Handler) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	out, err := h.chat.Chat(c.Request.Context(), usecase.ChatInput{
		Message:     req.Message,
		CountryCode: req.CountryCode,
		Model:       req.Model,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Role: out.Role, Text: out.Text, Crisis: out.Crisis})
}

func (h *Handler) handleDebugEnv(c *gin.Context) {
	c.JSON(http.StatusOK, h.view)
}

func handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// writeError maps a usecase error to the status code and error body shape
// each failure class owes the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.log.WithError(err).Error("unexpected handler error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_server_error",
			"message": err.Error(),
		})
		return
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": ucErr.Reason})
	case usecase.ErrorNoModel:
		c.JSON(http.StatusInternalServerError, gin.H{"error": ucErr.Reason})
	case usecase.ErrorUpstream:
		detail := ucErr.Reason
		if ucErr.Err != nil {
			detail = ucErr.Err.Error()
		}
		h.log.WithField("detail", detail).Error("hosted model call failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "upstream_inference_failed",
			"detail":   detail,
			"guidance": usecase.ClassifyUpstreamError(detail),
		})
	default:
		h.log.WithError(ucErr).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_server_error",
			"message": ucErr.Error(),
		})
	}
}

// recovered is the global panic handler: log with stack, answer with a
// structured 500 body, include the trace only in debug mode.
func (h *Handler) recovered(c *gin.Context, recovered any) {
	stack := string(debug.Stack())
	h.log.WithField("panic", fmt.Sprint(recovered)).Error("unhandled panic\n" + stack)

	body := gin.H{
		"error":   "internal_server_error",
		"message": fmt.Sprint(recovered),
	}
	if h.debug {
		body["traceback"] = stack
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// requestLogger attaches a request id (reusing the caller's when present)
// and logs one line per request.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		h.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		}).Debug("request handled")
	}
}

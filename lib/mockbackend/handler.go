// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talia-ai/webchat/webchat"
)

var errUnavailable = errors.New("injected failure")

// operatorMessageRequest is the body of POST {base}/operator/messages.
type operatorMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	AgentName string `json:"agent_name"`
	Content   string `json:"content" binding:"required"`
}

// manualModeRequest is the body of POST {base}/operator/manual.
type manualModeRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	ManualMode bool   `json:"manual_mode"`
}

// Handler returns the HTTP surface of the backend: the widget
// endpoints under the base path, the operator endpoints under
// {base}/operator, and /health.
func (b *Backend) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), b.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group(b.basePath)
	{
		api.POST("/messages", b.handleSend)
		api.GET("/messages", b.handleHistory)
		api.POST("/close", b.handleClose)

		operator := api.Group("/operator")
		operator.POST("/messages", b.handleOperatorMessage)
		operator.POST("/manual", b.handleManualMode)
		operator.GET("/sessions/:session_id", b.handleSession)
	}
	return router
}

func (b *Backend) handleSend(c *gin.Context) {
	ctx := c.Request.Context()

	var request webchat.SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.SessionID == "" || strings.TrimSpace(request.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and content are required"})
		return
	}

	response, err := b.send(ctx, request)
	if errors.Is(err, errUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant temporarily unavailable"})
		return
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "reply failed", "session_id", request.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to produce reply"})
		return
	}
	c.JSON(http.StatusOK, response)
}

func (b *Backend) handleHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	limit := DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, MaxHistoryLimit)
	}
	c.JSON(http.StatusOK, b.history(sessionID, limit))
}

func (b *Backend) handleClose(c *gin.Context) {
	var request webchat.CloseRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	b.close(request.SessionID)
	c.Status(http.StatusNoContent)
}

func (b *Backend) handleOperatorMessage(c *gin.Context) {
	var request operatorMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message := b.PostOperatorMessage(request.SessionID, request.AgentName, request.Content)
	c.JSON(http.StatusCreated, message)
}

func (b *Backend) handleManualMode(c *gin.Context) {
	var request manualModeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b.SetManualMode(request.SessionID, request.ManualMode)
	c.JSON(http.StatusOK, gin.H{"session_id": request.SessionID, "manual_mode": request.ManualMode})
}

func (b *Backend) handleSession(c *gin.Context) {
	session, ok := b.Session(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":      session.SessionID,
		"conversation_id": session.ConversationID,
		"manual_mode":     session.ManualMode,
		"closed":          session.Closed,
		"fresh_loads":     session.FreshLoads,
		"messages":        len(session.Messages),
	})
}

// requestLogger logs each request at debug level with slog.
func (b *Backend) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		b.logger.DebugContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

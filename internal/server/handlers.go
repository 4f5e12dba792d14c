package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
)

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if strings.TrimSpace(req.UserQuery) == "" {
		c.JSON(http.StatusBadRequest, errorBody("user_query is required"))
		return
	}

	resp, err := s.chat.HandleTurn(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "Chat turn failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMailExtract(c *gin.Context) {
	var req models.MailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.MailJSON == nil && strings.TrimSpace(req.UserQuery) == "" {
		c.JSON(http.StatusBadRequest, errorBody("mail_json or user_query is required"))
		return
	}

	resp, err := s.chat.ExtractMail(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "Mail extraction failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	messages, err := s.chat.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "Failed to load history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) handleDeleteAll(c *gin.Context) {
	result, err := s.chat.DeleteAll(c.Request.Context())
	if err != nil {
		s.fail(c, "Failed to delete chat data", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// fail answers 500. Unsupported categories carry their message to the caller,
// anything else is reported generically.
func (s *Server) fail(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err), zap.String("request_id", requestIDFrom(c)))

	var unsupported *models.UnsupportedCategoryError
	if errors.As(err, &unsupported) {
		c.JSON(http.StatusInternalServerError, errorBody(unsupported.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody(msg))
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/services"
)

// writeError maps domain sentinels onto HTTP status codes. Internal errors
// are logged with detail but returned opaque.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrVerificationCodeExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		s.logger.Error(c.Request.Context(), "request failed",
			"path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.verification.Confirm(c.Request.Context(), user, models.VerificationEmail, req.Code); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account verified"})
}

type resendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) handleResendCode(c *gin.Context) {
	var req resendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// do not reveal which emails exist
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
			return
		}
		s.writeError(c, err)
		return
	}

	if err := s.verification.Issue(c.Request.Context(), user, models.VerificationEmail); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

type sendMessageRequest struct {
	RecipientID   int64  `json:"recipientId" binding:"required"`
	ResourceID    *int64 `json:"resourceId"`
	Subject       string `json:"subject" binding:"required,max=200"`
	Content       string `json:"content" binding:"required,max=5000"`
	Priority      string `json:"priority"`
	ContactMethod string `json:"contactMethod"`
	SenderPhone   string `json:"senderPhone"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.messages.Send(c.Request.Context(), currentUser(c), services.SendMessageRequest{
		RecipientID:   req.RecipientID,
		ResourceID:    req.ResourceID,
		Subject:       req.Subject,
		Content:       req.Content,
		Priority:      req.Priority,
		ContactMethod: req.ContactMethod,
		SenderPhone:   req.SenderPhone,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func (s *Server) handleListInbox(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := s.messages.ListInbox(c.Request.Context(), currentUser(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleListSent(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := s.messages.ListSent(c.Request.Context(), currentUser(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleListUnread(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := s.messages.ListUnread(c.Request.Context(), currentUser(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	n, err := s.messages.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleMarkAsRead(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	resp, err := s.messages.MarkAsRead(c.Request.Context(), id, currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteMessage(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	if err := s.messages.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (s *Server) handleAvailableRecipients(c *gin.Context) {
	list, err := s.messages.AvailableRecipients(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleUploadURL(c *gin.Context) {
	key, url, err := s.files.GetPresignedPutURL(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "url": url})
}

func (s *Server) handleDownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	url, err := s.files.GetPresignedGetURL(c.Request.Context(), key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

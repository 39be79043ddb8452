// Package httpapi is the HTTP transport: a gin router over the domain
// services, with bearer-token authentication and sentinel-to-status error
// mapping.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/logging"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/services"
)

type Server struct {
	address      string
	logger       logging.Logger
	jwtSecret    []byte
	users        *services.UserService
	messages     *services.MessageService
	verification *services.VerificationService
	files        *services.FileService
	router       *gin.Engine
}

func NewServer(address string, logger logging.Logger, jwtSecret []byte,
	users *services.UserService, messages *services.MessageService,
	verification *services.VerificationService, files *services.FileService) *Server {

	s := &Server{
		address:      address,
		logger:       logger.With("module", "http_server"),
		jwtSecret:    jwtSecret,
		users:        users,
		messages:     messages,
		verification: verification,
		files:        files,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/verify", s.handleVerify)
		authGroup.POST("/resend-code", s.handleResendCode)
	}

	api := router.Group("/api", s.authRequired())
	{
		api.POST("/messages", s.handleSendMessage)
		api.GET("/messages/inbox", s.handleListInbox)
		api.GET("/messages/sent", s.handleListSent)
		api.GET("/messages/unread", s.handleListUnread)
		api.GET("/messages/unread/count", s.handleUnreadCount)
		api.PUT("/messages/:id/read", s.handleMarkAsRead)
		api.DELETE("/messages/:id", s.handleDeleteMessage)
		api.GET("/messages/users", s.handleAvailableRecipients)

		api.POST("/files/upload-url", s.handleUploadURL)
		api.GET("/files/download-url", s.handleDownloadURL)
	}

	return router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

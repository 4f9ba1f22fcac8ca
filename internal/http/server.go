// README: HTTP gateway; registers the webhook and health routes on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yen1506/linebot-coffee/internal/http/handlers"
	"github.com/yen1506/linebot-coffee/internal/http/middleware"
)

type ServerDeps struct {
	ChannelSecret string
	Workflow      handlers.Conversation
	Replier       handlers.Replier
	Events        handlers.EventClaimer
	Log           *zap.Logger
}

type Server struct {
	callback *handlers.CallbackHandler
	log      *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		callback: handlers.NewCallbackHandler(deps.ChannelSecret, deps.Workflow, deps.Replier, deps.Events, log),
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log))

	r.POST("/callback", middleware.RequireSignature(), s.callback.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

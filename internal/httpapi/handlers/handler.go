package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"github.com/suPer8Hu/ai-chatroom/internal/chat"
	"github.com/suPer8Hu/ai-chatroom/internal/common"
	"github.com/suPer8Hu/ai-chatroom/internal/httpapi/middleware"
	"github.com/suPer8Hu/ai-chatroom/internal/users"
	"go.uber.org/zap"
)

type Handler struct {
	Users   *users.Store
	Tokens  *auth.TokenService
	ChatSvc *chat.Service
	Log     *zap.Logger
}

func NewHandler(us *users.Store, tokens *auth.TokenService, chatSvc *chat.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Users: us, Tokens: tokens, ChatSvc: chatSvc, Log: log}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}

func (h *Handler) internalError(c *gin.Context, what string, err error) {
	h.Log.Error(what,
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.Error(err))
	common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
}

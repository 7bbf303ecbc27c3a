package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"github.com/suPer8Hu/ai-chatroom/internal/chat"
	"github.com/suPer8Hu/ai-chatroom/internal/common"
)

type postMessageReq struct {
	Content string `json:"content"`
}

func (h *Handler) PostMessage(c *gin.Context, claims auth.Claims) {
	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	author := chat.Human{UserID: claims.UserID, Username: claims.Username}
	res, err := h.ChatSvc.PostMessage(c.Request.Context(), author, req.Content)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidContent) {
			common.Fail(c, http.StatusBadRequest, 40001, err.Error())
			return
		}
		h.internalError(c, "post message failed", err)
		return
	}

	common.OK(c, res)
}

// ListMessages serves the shared room; every signed-in user sees the same log.
func (h *Handler) ListMessages(c *gin.Context, _ auth.Claims) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		// unparsable limit falls back to the default
		limit = 0
	}
	msgs, err := h.ChatSvc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "list messages failed", err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	common.OK(c, msgs)
}

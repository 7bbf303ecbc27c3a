package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-chatroom/internal/common"
	"github.com/suPer8Hu/ai-chatroom/internal/models"
	"github.com/suPer8Hu/ai-chatroom/internal/users"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user, err := h.Users.Create(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateUsername):
			common.Fail(c, http.StatusBadRequest, 40901, "username already exists")
		case errors.Is(err, users.ErrInvalidInput):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		default:
			h.internalError(c, "register failed", err)
		}
		return
	}

	h.issueToken(c, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	user, err := h.Users.Verify(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid credentials")
			return
		}
		h.internalError(c, "login failed", err)
		return
	}

	h.issueToken(c, user)
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) {
	token, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.internalError(c, "sign token failed", err)
		return
	}
	common.OK(c, tokenResp{Token: token, Username: user.Username})
}

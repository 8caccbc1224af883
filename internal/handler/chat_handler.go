package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"boardtex/internal/model"
	"boardtex/internal/pkg/errcode"
	"boardtex/internal/pkg/response"
)

// IResolver lets handler tests swap the chat service for a fake.
type IResolver interface {
	Resolve(ctx context.Context, query model.MathQuery) (*model.MathAnswer, error)
}

type ChatHandler struct {
	chat IResolver
}

func NewChatHandler(chat IResolver) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message string `json:"message"`
	UseLLM  *bool  `json:"use_llm"`
}

// Chat answers a math question. use_llm defaults to true; setting it false
// restricts resolution to the deterministic engine.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	mode := model.QueryModeAllowFallback
	if req.UseLLM != nil && !*req.UseLLM {
		mode = model.QueryModeSymbolicOnly
	}
	answer, err := h.chat.Resolve(c.Request.Context(), model.MathQuery{Message: req.Message, Mode: mode})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

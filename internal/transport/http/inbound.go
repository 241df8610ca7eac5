package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/service"
)

// InboundHandler 处理外部中继回调的入站邮件。
type InboundHandler struct {
	inbound *service.InboundService
	logger  *zap.Logger
}

// NewInboundHandler 创建入站邮件处理器。
func NewInboundHandler(inbound *service.InboundService, logger *zap.Logger) *InboundHandler {
	return &InboundHandler{inbound: inbound, logger: logger}
}

// Receive 接收一封入站邮件并投递给别名所有者。
// 目标地址未激活时返回 ok+ignored，中继方不需要重试。
func (h *InboundHandler) Receive(c *gin.Context) {
	var payload domain.InboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if strings.TrimSpace(payload.To) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'to'"})
		return
	}

	result, err := h.inbound.Handle(payload)
	if err != nil {
		h.logger.Error("入站邮件处理失败",
			zap.String("to", payload.To),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery failed"})
		return
	}

	if result.Ignored {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "chunks": result.Chunks, "images": result.Images})
}

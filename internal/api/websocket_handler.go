package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/galaxy-explorer/internal/config"
	"github.com/wfunc/galaxy-explorer/internal/middleware"
	ws "github.com/wfunc/galaxy-explorer/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	opts     ws.ClientOptions
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, cfg *config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	readBuf, writeBuf := 1024, 1024
	if cfg != nil {
		if cfg.ReadBufferSize > 0 {
			readBuf = cfg.ReadBufferSize
		}
		if cfg.WriteBufferSize > 0 {
			writeBuf = cfg.WriteBufferSize
		}
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts:   ws.ClientOptionsFromConfig(cfg),
		logger: logger,
	}
}

// GameWebSocket 游戏WebSocket连接，需先通过认证
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, userID, h.opts)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	sessionID, _ := middleware.GetSessionID(c)
	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
}

// GetOnlineCount 获取在线人数
func (h *WebSocketHandler) GetOnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data: gin.H{
			"online_count": h.hub.GetOnlineCount(),
			"online_users": len(h.hub.GetOnlineUsers()),
		},
	})
}

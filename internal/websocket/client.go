package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/galaxy-explorer/internal/config"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound   = errors.New("客户端未找到")
	ErrUserNotConnected = errors.New("用户未连接")
	ErrSendBufferFull   = errors.New("发送缓冲区已满")
	ErrInvalidMessage   = errors.New("无效的消息格式")
)

// WebSocket默认配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// ClientOptions 连接参数
type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// DefaultClientOptions 默认连接参数
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		WriteWait:      writeWait,
		PongWait:       pongWait,
		PingPeriod:     pingPeriod,
		MaxMessageSize: maxMessageSize,
	}
}

// ClientOptionsFromConfig 从配置构建，未配置的项使用默认值
func ClientOptionsFromConfig(cfg *config.WebSocketConfig) ClientOptions {
	opts := DefaultClientOptions()
	if cfg == nil {
		return opts
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteWait = cfg.WriteTimeout
	}
	if cfg.PongTimeout > 0 {
		opts.PongWait = cfg.PongTimeout
		opts.PingPeriod = (cfg.PongTimeout * 9) / 10
	}
	if cfg.PingInterval > 0 && cfg.PingInterval < opts.PongWait {
		opts.PingPeriod = cfg.PingInterval
	}
	if cfg.MaxMessageSize > 0 {
		opts.MaxMessageSize = cfg.MaxMessageSize
	}
	return opts
}

// Client WebSocket客户端
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	opts ClientOptions
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID string, opts ClientOptions) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		opts:   opts,
	}
}

// ReadPump 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				// Hub关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并队列中的消息，逐行一条
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理客户端消息
func (c *Client) handleMessage(data []byte) {
	if c.hub.messageHandler != nil {
		c.hub.messageHandler.HandleClientMessage(c, data)
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", ErrInvalidMessage.Error())
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.SendMessage(MessageTypePong, msg.RequestID, nil)
	default:
		c.sendError(msg.RequestID, "未知的消息类型: "+msg.Type)
	}
}

// sendError 发送错误消息
func (c *Client) sendError(requestID, message string) {
	c.SendMessage(MessageTypeError, requestID, map[string]string{"error": message})
}

// SendMessage 发送消息
func (c *Client) SendMessage(msgType, requestID string, data interface{}) error {
	msg := &Message{
		Type:      msgType,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if !c.hub.deliver(c, payload) {
		return ErrSendBufferFull
	}
	return nil
}

// Close 关闭客户端
func (c *Client) Close() {
	c.hub.Unregister(c)
}

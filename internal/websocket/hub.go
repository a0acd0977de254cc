package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 客户端指令
	MessageTypeGetState         = "get_state"
	MessageTypeTravel           = "travel"
	MessageTypeExplore          = "explore"
	MessageTypeRefuel           = "refuel"
	MessageTypePurchaseCredits  = "purchase_credits"
	MessageTypePurchaseFuel     = "purchase_fuel"
	MessageTypeClaimFreeCredits = "claim_free_credits"

	// 服务端推送
	MessageTypeResult         = "result"
	MessageTypeServerShutdown = "server_shutdown"
)

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
}

// Hub WebSocket连接管理中心
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 用户ID到客户端的映射，同一用户可多端在线
	userClients map[string][]*Client
	userMu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once

	messageHandler MessageHandler
	logger         *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[string][]*Client),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，ctx 取消后关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.flushBroadcast()
			h.closeAll()
			h.logger.Info("WebSocket Hub已停止")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.userMu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))

	_ = client.SendMessage(MessageTypeConnected, "", map[string]string{"client_id": client.ID})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	close(client.send)
	h.clientsMu.Unlock()

	h.userMu.Lock()
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c.ID == client.ID {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))
}

// flushBroadcast 关闭前投递已排队的广播
func (h *Hub) flushBroadcast() {
	for {
		select {
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		default:
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
	h.clientsMu.Unlock()

	h.userMu.Lock()
	h.userClients = make(map[string][]*Client)
	h.userMu.Unlock()
}

// deliver 投递到客户端发送队列，客户端已注销时丢弃
// 持有读锁保证 send 通道不会在投递期间被关闭
func (h *Hub) deliver(client *Client, data []byte) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if h.clients[client.ID] != client {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		h.logger.Warn("客户端发送缓冲区满",
			zap.String("client_id", client.ID),
			zap.String("user_id", client.UserID))
		return false
	}
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		h.deliver(c, data)
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()
	if !ok {
		return ErrClientNotFound
	}

	if !h.deliver(client, data) {
		return ErrSendBufferFull
	}
	return nil
}

// SendToUser 发送消息给指定用户的所有客户端
func (h *Hub) SendToUser(userID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.userMu.RLock()
	clients := append([]*Client(nil), h.userClients[userID]...)
	h.userMu.RUnlock()

	if len(clients) == 0 {
		return ErrUserNotConnected
	}
	for _, c := range clients {
		h.deliver(c, data)
	}
	return nil
}

// Notify 推送引擎事件给用户
func (h *Hub) Notify(userID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("序列化推送失败", zap.String("event", event), zap.Error(err))
		return
	}
	err = h.SendToUser(userID, &Message{
		Type:      event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil && err != ErrUserNotConnected {
		h.logger.Warn("推送失败", zap.String("user_id", userID), zap.String("event", event), zap.Error(err))
	}
}

// GetOnlineUsers 获取在线用户列表
func (h *Hub) GetOnlineUsers() []string {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Broadcast 广播消息
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

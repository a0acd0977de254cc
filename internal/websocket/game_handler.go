package websocket

import (
	"context"
	"encoding/json"

	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/service"
	"go.uber.org/zap"
)

// GameMessageHandler WebSocket游戏指令处理器
type GameMessageHandler struct {
	ctx    context.Context
	games  service.GameService
	logger *zap.Logger
}

// NewGameMessageHandler 创建游戏指令处理器，ctx 取消后进行中的指令随之取消
func NewGameMessageHandler(ctx context.Context, games service.GameService, logger *zap.Logger) *GameMessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameMessageHandler{
		ctx:    ctx,
		games:  games,
		logger: logger,
	}
}

type bodyRequest struct {
	BodyID string `json:"body_id"`
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		h.sendError(client, "", apperrors.New(apperrors.ErrMessageFormat))
		client.Close()
		return
	}

	if msg.Type == "" {
		h.sendError(client, msg.RequestID, apperrors.New(apperrors.ErrMessageFormat, "消息类型不能为空"))
		client.Close()
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.String("user_id", client.UserID))

	switch msg.Type {
	case MessageTypePing:
		client.SendMessage(MessageTypePong, msg.RequestID, nil)

	case MessageTypePong:

	case MessageTypeGetState:
		h.handleGetState(client, &msg)

	case MessageTypeTravel:
		// 航行期间会阻塞，不能占用读协程
		go h.handleTravel(client, &msg)

	case MessageTypeExplore:
		h.handleExplore(client, &msg)

	case MessageTypeRefuel:
		h.handleRefuel(client, &msg)

	case MessageTypePurchaseCredits, MessageTypePurchaseFuel:
		h.handlePurchase(client, &msg)

	case MessageTypeClaimFreeCredits:
		h.handleClaim(client, &msg)

	default:
		h.logger.Warn("未知消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		h.sendError(client, msg.RequestID, apperrors.New(apperrors.ErrMessageFormat, "不支持的消息类型: "+msg.Type))
		client.Close()
	}
}

func (h *GameMessageHandler) handleGetState(client *Client, msg *Message) {
	view, err := h.games.State(h.ctx, client.UserID)
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	client.SendMessage(MessageTypeGetState, msg.RequestID, view)
}

func (h *GameMessageHandler) handleTravel(client *Client, msg *Message) {
	var req bodyRequest
	if !h.decode(client, msg, &req) {
		return
	}
	out, err := h.games.Travel(h.ctx, client.UserID, req.BodyID)
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	h.sendResult(client, msg.RequestID, service.TravelResult(out))
}

func (h *GameMessageHandler) handleExplore(client *Client, msg *Message) {
	var req bodyRequest
	if !h.decode(client, msg, &req) {
		return
	}
	out, err := h.games.Explore(h.ctx, client.UserID, req.BodyID)
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	h.sendResult(client, msg.RequestID, service.ExploreResult(out))
}

func (h *GameMessageHandler) handleRefuel(client *Client, msg *Message) {
	var req bodyRequest
	if !h.decode(client, msg, &req) {
		return
	}
	out, err := h.games.Refuel(h.ctx, client.UserID, req.BodyID)
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	h.sendResult(client, msg.RequestID, service.OutcomeResult(out))
}

func (h *GameMessageHandler) handlePurchase(client *Client, msg *Message) {
	purchase := &service.PurchaseRequest{}
	if !h.decode(client, msg, purchase) {
		return
	}

	var err error
	var result *service.Result
	if msg.Type == MessageTypePurchaseCredits {
		out, e := h.games.PurchaseCredits(h.ctx, client.UserID, purchase)
		if err = e; err == nil {
			result = service.OutcomeResult(out)
		}
	} else {
		out, e := h.games.PurchaseFuel(h.ctx, client.UserID, purchase)
		if err = e; err == nil {
			result = service.OutcomeResult(out)
		}
	}
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	h.sendResult(client, msg.RequestID, result)
}

func (h *GameMessageHandler) handleClaim(client *Client, msg *Message) {
	out, err := h.games.ClaimFreeCredits(h.ctx, client.UserID)
	if err != nil {
		h.sendError(client, msg.RequestID, err)
		return
	}
	h.sendResult(client, msg.RequestID, service.OutcomeResult(out))
}

// decode 解析指令参数，失败时回复错误
func (h *GameMessageHandler) decode(client *Client, msg *Message, dst interface{}) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		h.sendError(client, msg.RequestID, apperrors.New(apperrors.ErrInvalidParam, "参数格式错误"))
		return false
	}
	return true
}

func (h *GameMessageHandler) sendResult(client *Client, requestID string, result *service.Result) {
	if err := client.SendMessage(MessageTypeResult, requestID, result); err != nil {
		h.logger.Warn("发送结果失败",
			zap.String("client_id", client.ID),
			zap.Error(apperrors.Wrap(err, apperrors.ErrWebSocketSend)))
	}
}

func (h *GameMessageHandler) sendError(client *Client, requestID string, err error) {
	appErr := apperrors.Wrap(err, apperrors.ErrUnknown)
	client.SendMessage(MessageTypeError, requestID, map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

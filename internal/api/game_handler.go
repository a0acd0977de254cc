package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/middleware"
	"github.com/wfunc/galaxy-explorer/internal/service"
)

// GameHandler 游戏进度处理器
type GameHandler struct {
	games service.GameService
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(games service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// BodyRequest 指定星球的请求
type BodyRequest struct {
	BodyID string `json:"body_id" binding:"required"`
}

// Catalog 星球目录
func (h *GameHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    h.games.Catalog().Bodies(),
	})
}

// Shop 商店礼包
func (h *GameHandler) Shop(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    h.games.Shop(),
	})
}

// State 当前进度
func (h *GameHandler) State(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.games.State(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    view,
	})
}

// CanClaim 今日是否可领取免费积分
func (h *GameHandler) CanClaim(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.games.State(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    gin.H{"can_claim": view.CanClaimFreeCredits},
	})
}

// Travel 航行，请求在抵达后返回
func (h *GameHandler) Travel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.games.Travel(c.Request.Context(), userID, req.BodyID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.TravelResult(out))
}

// Explore 探索
func (h *GameHandler) Explore(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.games.Explore(c.Request.Context(), userID, req.BodyID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.ExploreResult(out))
}

// Refuel 加油
func (h *GameHandler) Refuel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.games.Refuel(c.Request.Context(), userID, req.BodyID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.OutcomeResult(out))
}

// PurchaseCredits 购买积分
func (h *GameHandler) PurchaseCredits(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req service.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.games.PurchaseCredits(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.OutcomeResult(out))
}

// PurchaseFuel 购买燃料
func (h *GameHandler) PurchaseFuel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req service.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.games.PurchaseFuel(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.OutcomeResult(out))
}

// ClaimFreeCredits 领取每日免费积分
func (h *GameHandler) ClaimFreeCredits(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	out, err := h.games.ClaimFreeCredits(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, service.OutcomeResult(out))
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.ErrAuthentication, "未登录"))
	}
	return userID, ok
}

func respondResult(c *gin.Context, result *service.Result) {
	c.JSON(result.HTTPStatus(), result)
}

package service

import (
	"context"
	"math"

	"github.com/wfunc/galaxy-explorer/internal/catalog"
	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/game"
	"github.com/wfunc/galaxy-explorer/internal/logger"
	"go.uber.org/zap"
)

// Pack 商店礼包
type Pack struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// ShopCatalog 商店礼包列表
type ShopCatalog struct {
	Credits []Pack `json:"credits"`
	Fuel    []Pack `json:"fuel"`
}

// DefaultShop 默认礼包
func DefaultShop() *ShopCatalog {
	return &ShopCatalog{
		Credits: []Pack{
			{ID: "starter", Label: "Starter Pack", Amount: 100},
			{ID: "explorer", Label: "Explorer Pack", Amount: 500},
			{ID: "admiral", Label: "Admiral Pack", Amount: 1000},
			{ID: "commander", Label: "Commander Pack", Amount: 2500},
		},
		Fuel: []Pack{
			{ID: "quick-fill", Label: "Quick Fill", Amount: 25},
			{ID: "half-tank", Label: "Half Tank", Amount: 50},
			{ID: "full-tank", Label: "Full Tank", Amount: 100},
			// 超出部分会被截断，等同于加满
			{ID: "refill", Label: "Free Refill", Amount: math.MaxInt32},
		},
	}
}

func findPack(packs []Pack, id string) (Pack, bool) {
	for _, p := range packs {
		if p.ID == id {
			return p, true
		}
	}
	return Pack{}, false
}

// gameService 游戏进度服务实现
type gameService struct {
	sessions *game.SessionManager
	shop     *ShopCatalog
	log      *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(sessions *game.SessionManager, shop *ShopCatalog, log *zap.Logger) GameService {
	if shop == nil {
		shop = DefaultShop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &gameService{
		sessions: sessions,
		shop:     shop,
		log:      log,
	}
}

func (s *gameService) engine(ctx context.Context, userID string) (*game.Engine, error) {
	e, err := s.sessions.Acquire(ctx, userID)
	if err != nil {
		s.log.Warn("获取玩家引擎失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return e, nil
}

// run 在玩家引擎上执行操作，引擎已被回收时重新获取一次
func (s *gameService) run(ctx context.Context, userID string, op func(e *game.Engine) game.Reason) error {
	for attempt := 0; ; attempt++ {
		e, err := s.engine(ctx, userID)
		if err != nil {
			return err
		}
		if reason := op(e); reason != game.ReasonSessionExpired || attempt > 0 {
			return nil
		}
		s.log.Debug("引擎已回收，重新获取", zap.String("user_id", userID))
	}
}

// State 当前状态
func (s *gameService) State(ctx context.Context, userID string) (*game.StateView, error) {
	e, err := s.engine(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := e.View()
	return &view, nil
}

// Travel 航行
func (s *gameService) Travel(ctx context.Context, userID, bodyID string) (*game.TravelOutcome, error) {
	var out game.TravelOutcome
	err := s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.Travel(ctx, bodyID)
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out.Outcome, map[string]interface{}{"body_id": bodyID})
	return &out, nil
}

// Explore 探索
func (s *gameService) Explore(ctx context.Context, userID, bodyID string) (*game.ExploreOutcome, error) {
	var out game.ExploreOutcome
	err := s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.Explore(ctx, bodyID)
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out.Outcome, map[string]interface{}{
		"body_id":   bodyID,
		"discovery": out.DiscoveryName,
		"earned":    out.CreditsEarned,
	})
	return &out, nil
}

// Refuel 补满燃料
func (s *gameService) Refuel(ctx context.Context, userID, bodyID string) (*game.Outcome, error) {
	var out game.Outcome
	err := s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.Refuel(ctx, bodyID)
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out, map[string]interface{}{"body_id": bodyID})
	return &out, nil
}

// PurchaseCredits 购买积分
func (s *gameService) PurchaseCredits(ctx context.Context, userID string, req *PurchaseRequest) (*game.Outcome, error) {
	amount, err := s.resolveAmount(s.shop.Credits, req)
	if err != nil {
		return nil, err
	}
	var out game.Outcome
	err = s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.PurchaseCredits(ctx, amount)
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out, map[string]interface{}{"pack_id": req.PackID, "amount": amount})
	return &out, nil
}

// PurchaseFuel 购买燃料
func (s *gameService) PurchaseFuel(ctx context.Context, userID string, req *PurchaseRequest) (*game.Outcome, error) {
	amount, err := s.resolveAmount(s.shop.Fuel, req)
	if err != nil {
		return nil, err
	}
	if amount > math.MaxInt32 {
		amount = math.MaxInt32
	}
	var out game.Outcome
	err = s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.PurchaseFuel(ctx, int(amount))
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out, map[string]interface{}{"pack_id": req.PackID, "amount": amount})
	return &out, nil
}

// ClaimFreeCredits 领取每日积分
func (s *gameService) ClaimFreeCredits(ctx context.Context, userID string) (*game.Outcome, error) {
	var out game.Outcome
	err := s.run(ctx, userID, func(e *game.Engine) game.Reason {
		out = e.ClaimFreeCredits(ctx)
		return out.Reason
	})
	if err != nil {
		return nil, err
	}
	record(userID, out, nil)
	return &out, nil
}

// Catalog 星图
func (s *gameService) Catalog() *catalog.Catalog {
	return s.sessions.Catalog()
}

// Shop 商店礼包
func (s *gameService) Shop() *ShopCatalog {
	return s.shop
}

// resolveAmount 礼包优先，否则使用请求数量，数量的正负由引擎校验
func (s *gameService) resolveAmount(packs []Pack, req *PurchaseRequest) (int64, error) {
	if req.PackID == "" {
		return req.Amount, nil
	}
	pack, ok := findPack(packs, req.PackID)
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrNotFound, "礼包不存在: %s", req.PackID)
	}
	return pack.Amount, nil
}

// record 记录成功的游戏事件
func record(userID string, out game.Outcome, data map[string]interface{}) {
	if !out.Success {
		return
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	data["amount_applied"] = out.Amount
	if out.Warning != "" {
		data["warning"] = out.Warning
	}
	logger.LogGameEvent(string(out.Op), userID, data)
}

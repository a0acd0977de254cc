package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/wfunc/galaxy-explorer/internal/catalog"
	"github.com/wfunc/galaxy-explorer/internal/config"
)

// MaxCredits 积分上限
const MaxCredits int64 = math.MaxInt64

// GameState 玩家的资源与探索进度
type GameState struct {
	Credits                int64          `json:"credits"`
	Fuel                   int            `json:"fuel"`
	MaxFuel                int            `json:"max_fuel"`
	CurrentBodyID          string         `json:"current_body_id"`
	ExplorationCounts      map[string]int `json:"exploration_counts"`
	TotalDiscoveries       int            `json:"total_discoveries"`
	LastFreeCreditsClaimAt *time.Time     `json:"last_free_credits_claim_at,omitempty"`
}

// Rules 进度规则参数
type Rules struct {
	StartingCredits      int64
	StartingFuel         int
	MaxFuel              int
	FuelPerTravel        int
	TravelDuration       time.Duration
	RewardMin            int64
	RewardMax            int64
	DailyBonus           int64
	AutoExploreOnArrival bool
	PersistTimeout       time.Duration
	// Location 每日领取判断所用时区
	Location *time.Location
}

// DefaultRules 默认规则
func DefaultRules() Rules {
	return Rules{
		StartingCredits: 1000,
		StartingFuel:    100,
		MaxFuel:         100,
		FuelPerTravel:   20,
		TravelDuration:  2 * time.Second,
		RewardMin:       50,
		RewardMax:       149,
		DailyBonus:      100,
		PersistTimeout:  5 * time.Second,
		Location:        time.Local,
	}
}

// RulesFromConfig 从配置构建规则
func RulesFromConfig(cfg *config.GameConfig, loc *time.Location) Rules {
	if loc == nil {
		loc = time.Local
	}
	return Rules{
		StartingCredits:      cfg.StartingCredits,
		StartingFuel:         cfg.StartingFuel,
		MaxFuel:              cfg.MaxFuel,
		FuelPerTravel:        cfg.FuelPerTravel,
		TravelDuration:       cfg.TravelDuration,
		RewardMin:            cfg.RewardMin,
		RewardMax:            cfg.RewardMax,
		DailyBonus:           cfg.DailyBonus,
		AutoExploreOnArrival: cfg.AutoExploreOnArrival,
		PersistTimeout:       cfg.PersistTimeout,
		Location:             loc,
	}
}

// creditHeadroom 购买积分的上限，为探索奖励和每日积分保留余量
func (r Rules) creditHeadroom(credits int64) int64 {
	return MaxCredits - credits - max(r.RewardMax, r.DailyBonus, 0)
}

// rollReward 在 [RewardMin, RewardMax] 内均匀抽取奖励
func (r Rules) rollReward(rng *rand.Rand) int64 {
	if r.RewardMax <= r.RewardMin {
		return r.RewardMin
	}
	return r.RewardMin + rng.Int63n(r.RewardMax-r.RewardMin+1)
}

// NewGameState 创建首次进入游戏的默认状态
func NewGameState(rules Rules, homeBodyID string) *GameState {
	return &GameState{
		Credits:           rules.StartingCredits,
		Fuel:              rules.StartingFuel,
		MaxFuel:           rules.MaxFuel,
		CurrentBodyID:     homeBodyID,
		ExplorationCounts: make(map[string]int),
	}
}

// Clone 深拷贝
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.ExplorationCounts = make(map[string]int, len(s.ExplorationCounts))
	for id, n := range s.ExplorationCounts {
		out.ExplorationCounts[id] = n
	}
	if s.LastFreeCreditsClaimAt != nil {
		t := *s.LastFreeCreditsClaimAt
		out.LastFreeCreditsClaimAt = &t
	}
	return &out
}

// ExplorationCount 指定星球已领取的发现数，缺省为0
func (s *GameState) ExplorationCount(bodyID string) int {
	return s.ExplorationCounts[bodyID]
}

// CheckInvariants 校验状态不变量
func (s *GameState) CheckInvariants(cat *catalog.Catalog) error {
	if s.MaxFuel <= 0 {
		return fmt.Errorf("燃料上限无效: %d", s.MaxFuel)
	}
	if s.Fuel < 0 || s.Fuel > s.MaxFuel {
		return fmt.Errorf("燃料越界: %d/%d", s.Fuel, s.MaxFuel)
	}
	if s.Credits < 0 {
		return fmt.Errorf("积分为负: %d", s.Credits)
	}
	if !cat.Has(s.CurrentBodyID) {
		return fmt.Errorf("当前星球不存在: %s", s.CurrentBodyID)
	}

	sum := 0
	for id, n := range s.ExplorationCounts {
		body, ok := cat.Get(id)
		if !ok {
			return fmt.Errorf("探索记录引用未知星球: %s", id)
		}
		if n < 0 || n > body.MaxDiscoveries {
			return fmt.Errorf("探索次数越界: %s=%d/%d", id, n, body.MaxDiscoveries)
		}
		sum += n
	}
	if sum != s.TotalDiscoveries {
		return fmt.Errorf("发现总数不一致: total=%d sum=%d", s.TotalDiscoveries, sum)
	}
	return nil
}

// Normalize 修复从存储加载的状态，返回所做的修正
func (s *GameState) Normalize(cat *catalog.Catalog, rules Rules) []string {
	var fixes []string

	if s.ExplorationCounts == nil {
		s.ExplorationCounts = make(map[string]int)
	}
	if s.MaxFuel <= 0 {
		s.MaxFuel = rules.MaxFuel
		fixes = append(fixes, "max_fuel")
	}
	if s.Fuel < 0 {
		s.Fuel = 0
		fixes = append(fixes, "fuel")
	} else if s.Fuel > s.MaxFuel {
		s.Fuel = s.MaxFuel
		fixes = append(fixes, "fuel")
	}
	if s.Credits < 0 {
		s.Credits = 0
		fixes = append(fixes, "credits")
	}
	if !cat.Has(s.CurrentBodyID) {
		s.CurrentBodyID = cat.Home()
		fixes = append(fixes, "current_body_id")
	}

	sum := 0
	for id, n := range s.ExplorationCounts {
		body, ok := cat.Get(id)
		switch {
		case !ok || n <= 0:
			delete(s.ExplorationCounts, id)
			if n != 0 {
				fixes = append(fixes, "exploration:"+id)
			}
			continue
		case n > body.MaxDiscoveries:
			n = body.MaxDiscoveries
			s.ExplorationCounts[id] = n
			fixes = append(fixes, "exploration:"+id)
		}
		sum += n
	}
	if sum != s.TotalDiscoveries {
		s.TotalDiscoveries = sum
		fixes = append(fixes, "total_discoveries")
	}
	return fixes
}

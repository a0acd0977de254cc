package game

import (
	"fmt"

	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
)

// Op 引擎操作名
type Op string

const (
	OpTravel           Op = "travel"
	OpExplore          Op = "explore"
	OpRefuel           Op = "refuel"
	OpPurchaseCredits  Op = "purchase_credits"
	OpPurchaseFuel     Op = "purchase_fuel"
	OpClaimFreeCredits Op = "claim_free_credits"
)

// Reason 操作被拒绝的原因
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonUnknownBody          Reason = "unknown_body"
	ReasonAlreadyAtDestination Reason = "already_at_destination"
	ReasonInsufficientCredits  Reason = "insufficient_credits"
	ReasonInsufficientFuel     Reason = "insufficient_fuel"
	ReasonFullyExplored        Reason = "fully_explored"
	ReasonTankFull             Reason = "tank_full"
	ReasonAlreadyClaimed       Reason = "already_claimed"
	ReasonInvalidAmount        Reason = "invalid_amount"
	ReasonBusy                 Reason = "busy"
	ReasonSessionExpired       Reason = "session_expired"
	ReasonCreditLimit          Reason = "credit_limit"
	ReasonPersistence          Reason = "persistence_failed"
	ReasonInternal             Reason = "internal"
)

var reasonCodes = map[Reason]apperrors.ErrorCode{
	ReasonUnknownBody:          apperrors.ErrUnknownBody,
	ReasonAlreadyAtDestination: apperrors.ErrAlreadyAtDestination,
	ReasonInsufficientCredits:  apperrors.ErrInsufficientCredits,
	ReasonInsufficientFuel:     apperrors.ErrInsufficientFuel,
	ReasonFullyExplored:        apperrors.ErrFullyExplored,
	ReasonTankFull:             apperrors.ErrTankFull,
	ReasonAlreadyClaimed:       apperrors.ErrAlreadyClaimed,
	ReasonInvalidAmount:        apperrors.ErrInvalidAmount,
	ReasonBusy:                 apperrors.ErrTravelInProgress,
	ReasonSessionExpired:       apperrors.ErrSessionExpired,
	ReasonCreditLimit:          apperrors.ErrCreditLimit,
	ReasonPersistence:          apperrors.ErrPersistence,
	ReasonInternal:             apperrors.ErrUnknown,
}

// Code 对应的错误码
func (r Reason) Code() apperrors.ErrorCode {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return 0
}

// IsValidation 是否为校验拒绝（不改变状态的正常结果）
func (r Reason) IsValidation() bool {
	return r != ReasonNone && r != ReasonPersistence && r != ReasonInternal
}

// Outcome 操作结果
type Outcome struct {
	Op      Op     `json:"op"`
	Success bool   `json:"success"`
	Reason  Reason `json:"reason,omitempty"`
	// Amount 实际生效的数量（积分或燃料）
	Amount int64 `json:"amount,omitempty"`
	// Warning 主存档已保存但附属记录写入失败
	Warning string     `json:"warning,omitempty"`
	State   *GameState `json:"state,omitempty"`
}

func succeeded(op Op, amount int64) Outcome {
	return Outcome{Op: op, Success: true, Amount: amount}
}

func rejected(op Op, reason Reason) Outcome {
	return Outcome{Op: op, Reason: reason}
}

// Message 面向玩家的简短提示
func (o Outcome) Message() string {
	if !o.Success {
		return failureMessage(o.Op, o.Reason)
	}
	switch o.Op {
	case OpTravel:
		return "Travel complete!"
	case OpExplore:
		return "Exploration complete!"
	case OpRefuel:
		return "Ship successfully refueled!"
	case OpPurchaseCredits:
		return fmt.Sprintf("Purchased %d credits!", o.Amount)
	case OpPurchaseFuel:
		if o.Amount == 0 {
			return "Fuel tank is already full!"
		}
		return fmt.Sprintf("Added %d fuel!", o.Amount)
	case OpClaimFreeCredits:
		return fmt.Sprintf("Received %d free credits!", o.Amount)
	}
	return "Done!"
}

func failureMessage(op Op, reason Reason) string {
	switch reason {
	case ReasonUnknownBody:
		return "Unknown destination!"
	case ReasonAlreadyAtDestination:
		return "You are already there!"
	case ReasonInsufficientCredits:
		switch op {
		case OpTravel:
			return "Insufficient credits for travel!"
		case OpRefuel:
			return "Insufficient credits for refueling!"
		}
		return "Insufficient credits!"
	case ReasonInsufficientFuel:
		return "Not enough fuel to travel!"
	case ReasonFullyExplored:
		return "This planet has been fully explored!"
	case ReasonTankFull:
		return "Fuel tank is already full!"
	case ReasonAlreadyClaimed:
		return "Free credits already claimed today!"
	case ReasonInvalidAmount:
		return "Amount must be positive!"
	case ReasonBusy:
		return "Ship is in transit, please wait!"
	case ReasonSessionExpired:
		return "Session expired, please try again."
	case ReasonCreditLimit:
		return "Credit balance is at its limit!"
	case ReasonPersistence:
		return "Could not save progress, please try again."
	}
	return "Something went wrong."
}

// ExploreOutcome 探索结果
type ExploreOutcome struct {
	Outcome
	BodyID        string `json:"body_id"`
	CreditsEarned int64  `json:"credits_earned"`
	DiscoveryName string `json:"discovery_name"`
}

// Message 面向玩家的简短提示
func (o ExploreOutcome) Message() string {
	if o.Success {
		return fmt.Sprintf("Discovered %s! +%d credits", o.DiscoveryName, o.CreditsEarned)
	}
	return o.Outcome.Message()
}

// TravelOutcome 航行结果
type TravelOutcome struct {
	Outcome
	BodyID   string `json:"body_id"`
	BodyName string `json:"body_name,omitempty"`
	// Discovery 到达后自动探索的结果
	Discovery *ExploreOutcome `json:"discovery,omitempty"`
}

// Message 面向玩家的简短提示
func (o TravelOutcome) Message() string {
	if !o.Success {
		return o.Outcome.Message()
	}
	msg := fmt.Sprintf("Arrived at %s!", o.BodyName)
	if o.Discovery != nil && o.Discovery.Success {
		msg += " " + o.Discovery.Message()
	}
	return msg
}

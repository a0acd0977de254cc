package game

import (
	"fmt"
	"sync"
	"time"
)

// TravelStatus 航行状态
type TravelStatus string

const (
	StatusIdle      TravelStatus = "idle"      // 停泊
	StatusTraveling TravelStatus = "traveling" // 航行中
)

// 状态机事件
const (
	EventDepart = "depart"
	EventArrive = "arrive"
)

// StateMachine 航行状态机
type StateMachine struct {
	mu          sync.RWMutex
	current     TravelStatus
	transitions map[string]TravelStatus

	// 航行数据
	target     string
	departedAt time.Time
	arriveAt   time.Time

	onStateChange func(from, to TravelStatus)
}

// NewStateMachine 创建航行状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		current:     StatusIdle,
		transitions: make(map[string]TravelStatus),
	}
	sm.addTransition(StatusIdle, EventDepart, StatusTraveling)
	sm.addTransition(StatusTraveling, EventArrive, StatusIdle)
	return sm
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(from TravelStatus, event string, to TravelStatus) {
	sm.transitions[sm.transitionKey(from, event)] = to
}

// transitionKey 生成转换键
func (sm *StateMachine) transitionKey(state TravelStatus, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Depart 开始航行
func (sm *StateMachine) Depart(target string, now time.Time, duration time.Duration) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.current
	if err := sm.trigger(EventDepart); err != nil {
		return err
	}
	sm.target = target
	sm.departedAt = now
	sm.arriveAt = now.Add(duration)

	if sm.onStateChange != nil {
		sm.onStateChange(from, sm.current)
	}
	return nil
}

// Arrive 结束航行
func (sm *StateMachine) Arrive() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.current
	if err := sm.trigger(EventArrive); err != nil {
		return err
	}
	sm.target = ""
	sm.departedAt = time.Time{}
	sm.arriveAt = time.Time{}

	if sm.onStateChange != nil {
		sm.onStateChange(from, sm.current)
	}
	return nil
}

// trigger 触发事件，调用方持有锁
func (sm *StateMachine) trigger(event string) error {
	to, ok := sm.transitions[sm.transitionKey(sm.current, event)]
	if !ok {
		return fmt.Errorf("无效的状态转换: 状态=%s, 事件=%s", sm.current, event)
	}
	sm.current = to
	return nil
}

// GetState 获取当前状态
func (sm *StateMachine) GetState() TravelStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Target 航行目的地，停泊时为空
func (sm *StateMachine) Target() (string, time.Time) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.target, sm.arriveAt
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.transitions[sm.transitionKey(sm.current, event)]
	return ok
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to TravelStatus)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}

package game

import "time"

// CanClaimDaily 判断是否可以领取每日奖励
// 按 loc 时区的日历日比较，不是滚动24小时冷却
func CanClaimDaily(lastClaim *time.Time, now time.Time, loc *time.Location) bool {
	if lastClaim == nil {
		return true
	}
	if loc == nil {
		loc = time.Local
	}
	ly, lm, ld := lastClaim.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ly != ny || lm != nm || ld != nd
}

// DayKey 日历日标识，格式 YYYY-MM-DD
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}

package schedule

import (
	"time"

	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/utils"
)

// NextOccurrence 计算规则在 reference 之后的下一次打卡时刻。
// 纯函数：相同入参恒返回相同结果，结果严格晚于 reference 且
// weekday 属于规则的 weekday 集合。
// 周重复规则 7 天内必有匹配，扫描上界 7 次，空集合直接报
// INVALID_RULE 而不是空转（正常情况下空集合在创建时就被拒绝）。
func NextOccurrence(rule *model.Schedule, reference time.Time) (time.Time, error) {
	if len(rule.Weekdays) == 0 {
		return time.Time{}, pkgerrors.InvalidRule
	}

	candidate, err := utils.AtTimeOfDay(rule.TimeOfDay, reference)
	if err != nil {
		return time.Time{}, pkgerrors.InvalidRule
	}

	if !candidate.After(reference) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	for i := 0; i < 7; i++ {
		if rule.Weekdays.Contains(candidate.Weekday()) {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}

	return time.Time{}, pkgerrors.InvalidRule
}

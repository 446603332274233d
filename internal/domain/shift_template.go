package domain

import "time"

// ShiftTemplate 描述一条重复排班规则：在生效期内的哪些日期、
// 哪个驻点、什么时间段需要生成班次
type ShiftTemplate struct {
	ID         int64  `json:"id"`
	ContractID int64  `json:"contractID"`
	LocationID *int64 `json:"locationID"` // 为 nil 时适用于合同下的所有驻点
	Name       string `json:"name"`

	StartTime       string `json:"startTime"` // "HH:MM"
	EndTime         string `json:"endTime"`   // "HH:MM"
	CrossesMidnight bool   `json:"crossesMidnight"`
	BreakMinutes    int32  `json:"breakMinutes"`
	GuardsPerShift  int32  `json:"guardsPerShift"`

	AppliesMonday    bool `json:"appliesMonday"`
	AppliesTuesday   bool `json:"appliesTuesday"`
	AppliesWednesday bool `json:"appliesWednesday"`
	AppliesThursday  bool `json:"appliesThursday"`
	AppliesFriday    bool `json:"appliesFriday"`
	AppliesSaturday  bool `json:"appliesSaturday"`
	AppliesSunday    bool `json:"appliesSunday"`

	AppliesOnHolidays      bool `json:"appliesOnHolidays"`
	AppliesOnWeekends      bool `json:"appliesOnWeekends"`
	SkipWhenLocationClosed bool `json:"skipWhenLocationClosed"`

	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo"` // 为 nil 时表示长期有效

	ScheduleType string `json:"scheduleType"`
	IsActive     bool   `json:"isActive"`
}

// WeekdayTable 返回按星期下标的适用表，下标 1 = 周一 ... 7 = 周日，
// 下标 0 不使用。每个模板构建一次，生成时直接按下标查询
func (t *ShiftTemplate) WeekdayTable() [8]bool {
	return [8]bool{
		1: t.AppliesMonday,
		2: t.AppliesTuesday,
		3: t.AppliesWednesday,
		4: t.AppliesThursday,
		5: t.AppliesFriday,
		6: t.AppliesSaturday,
		7: t.AppliesSunday,
	}
}

// EffectiveOn 判断模板在指定日期是否处于生效期内
func (t *ShiftTemplate) EffectiveOn(date time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if day.Before(time.Date(t.EffectiveFrom.Year(), t.EffectiveFrom.Month(), t.EffectiveFrom.Day(), 0, 0, 0, 0, date.Location())) {
		return false
	}
	if t.EffectiveTo != nil {
		end := time.Date(t.EffectiveTo.Year(), t.EffectiveTo.Month(), t.EffectiveTo.Day(), 0, 0, 0, 0, date.Location())
		if day.After(end) {
			return false
		}
	}
	return true
}

// AppliesTo 判断模板是否适用于指定驻点
func (t *ShiftTemplate) AppliesTo(locationID int64) bool {
	return t.LocationID == nil || *t.LocationID == locationID
}

package domain

import (
	"fmt"
	"time"
)

type ShiftStatus string

const (
	ShiftStatusScheduled ShiftStatus = "已排定"
)

// Shift 是由模板物化出来的具体班次，创建后本子系统不再修改它，
// 后续的派人、签到等流程属于其他服务
type Shift struct {
	ID         int64     `json:"id"`
	ContractID int64     `json:"contractID"`
	LocationID int64     `json:"locationID"`
	ShiftDate  time.Time `json:"shiftDate"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`

	TotalMinutes int32   `json:"totalMinutes"`
	BreakMinutes int32   `json:"breakMinutes"`
	WorkMinutes  int32   `json:"workMinutes"`
	NightHours   float64 `json:"nightHours"`
	DayHours     float64 `json:"dayHours"`

	GuardsRequired int32       `json:"guardsRequired"`
	GuardsAssigned int32       `json:"guardsAssigned"`
	Status         ShiftStatus `json:"status"`

	Day       int32 `json:"day"`
	Month     int32 `json:"month"`
	Year      int32 `json:"year"`
	Quarter   int32 `json:"quarter"`
	ISOWeek   int32 `json:"isoWeek"`
	DayOfWeek int32 `json:"dayOfWeek"` // 1 = 周一 ... 7 = 周日

	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShiftStatistics 汇总某个合同当前已物化班次的情况，供诊断接口使用
type ShiftStatistics struct {
	Count        int64      `json:"count"`
	EarliestDate *time.Time `json:"earliestDate"`
	LatestDate   *time.Time `json:"latestDate"`
}

// ShiftKey 生成班次的唯一键，(驻点, 日期, 开始, 结束) 相同即视为同一班次
func ShiftKey(locationID int64, date time.Time, start time.Time, end time.Time) string {
	return fmt.Sprintf("%d|%s|%d|%d", locationID, date.Format("2006-01-02"), start.Unix(), end.Unix())
}

// Key 返回该班次的唯一键
func (s *Shift) Key() string {
	return ShiftKey(s.LocationID, s.ShiftDate, s.StartTime, s.EndTime)
}

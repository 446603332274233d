package generator

import (
	"math"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// 夜间时段固定为 22:00 至次日 06:00
const (
	nightEndHour   = 6
	nightStartHour = 22
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) float64 {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Minutes()
}

// SplitNightDay 把 [start, end) 区间按夜间时段拆分为夜间小时数和日间小时数，
// 各自四舍五入到两位小数。计算方式是对跨越的每个自然日求与当天两段
// 夜间子区间（00:00-06:00 和 22:00-24:00）的交集，而不是逐分钟累加，
// 因此任意长度的班次都是常数内存
func SplitNightDay(start time.Time, end time.Time) (float64, float64) {
	if !end.After(start) {
		return 0, 0
	}

	totalMinutes := end.Sub(start).Minutes()
	nightMinutes := 0.0

	for day := DateOnly(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		morningEnd := time.Date(day.Year(), day.Month(), day.Day(), nightEndHour, 0, 0, 0, day.Location())
		eveningStart := time.Date(day.Year(), day.Month(), day.Day(), nightStartHour, 0, 0, 0, day.Location())

		nightMinutes += overlapMinutes(start, end, day, morningEnd)
		nightMinutes += overlapMinutes(start, end, eveningStart, day.AddDate(0, 0, 1))
	}

	return round2(nightMinutes / 60), round2((totalMinutes - nightMinutes) / 60)
}

// WeekdayNumber 返回 1 = 周一 ... 7 = 周日
func WeekdayNumber(date time.Time) int {
	return (int(date.Weekday())+6)%7 + 1
}

// FillDateParts 填充班次的各个日期维度字段
func FillDateParts(shift *domain.Shift, date time.Time) {
	_, isoWeek := date.ISOWeek()

	shift.Day = int32(date.Day())
	shift.Month = int32(date.Month())
	shift.Year = int32(date.Year())
	shift.Quarter = (int32(date.Month())-1)/3 + 1
	shift.ISOWeek = int32(isoWeek)
	shift.DayOfWeek = int32(WeekdayNumber(date))
}

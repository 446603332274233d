package generator

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// DateOnly 把时间截断到当天零点，窗口计算和生成循环都只在日期粒度上进行
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ComputeWindow 计算一次生成的日期窗口 [from, to)：
// from 取已有最晚班次的次日，没有任何班次时取今天；
// to 取 from + advanceDays，但不会超过合同结束日的次日。
// 当窗口为空（例如班次已经生成到合同结束日）时返回 ok = false
func ComputeWindow(latest *time.Time, today time.Time, advanceDays int, contractEnd time.Time) (domain.GenerationWindow, bool) {
	today = DateOnly(today)

	from := today
	if latest != nil {
		from = DateOnly((*latest).In(today.Location())).AddDate(0, 0, 1)
	}

	to := from.AddDate(0, 0, advanceDays)

	endCap := DateOnly(contractEnd.In(today.Location())).AddDate(0, 0, 1)
	if to.After(endCap) {
		to = endCap
	}

	if !from.Before(to) {
		return domain.GenerationWindow{}, false
	}

	return domain.GenerationWindow{From: from, To: to}, true
}

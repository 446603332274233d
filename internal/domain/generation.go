package domain

import "time"

// GenerationWindow 表示一次生成的日期区间，左闭右开 [From, To)
type GenerationWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Days 返回区间内的天数
func (w GenerationWindow) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// GenerationCandidate 是发现查询的结果：需要补充班次的合同
// 以及它当前已有班次的最晚日期（没有任何班次时为 nil）
type GenerationCandidate struct {
	ContractID      int64      `json:"contractID"`
	LatestShiftDate *time.Time `json:"latestShiftDate"`
}

// SkipReason 记录某个候选班次被规则排除的原因，属于诊断信息而非错误
type SkipReason struct {
	Date       time.Time `json:"date"`
	LocationID int64     `json:"locationID"`
	TemplateID int64     `json:"templateID"`
	Reason     string    `json:"reason"`
}

// GenerationResult 汇总一次物化调用的结果
type GenerationResult struct {
	ContractID   int64            `json:"contractID"`
	Window       GenerationWindow `json:"window"`
	CreatedIDs   []int64          `json:"createdIDs"`
	CreatedCount int              `json:"createdCount"`
	SkippedCount int              `json:"skippedCount"`
	SkipReasons  []SkipReason     `json:"skipReasons"`
	Errors       []string         `json:"errors"`
}

// DistinctSkipReasons 返回去重后的排除原因列表，保持首次出现的顺序
func (r *GenerationResult) DistinctSkipReasons() []string {
	seen := make(map[string]struct{})
	distinct := make([]string, 0)

	for _, sr := range r.SkipReasons {
		if _, exists := seen[sr.Reason]; exists {
			continue
		}
		seen[sr.Reason] = struct{}{}
		distinct = append(distinct, sr.Reason)
	}

	return distinct
}

package domain

import "time"

// GenerationCompletedEvent 在一次生成创建了至少一个班次后发布，
// 供其他服务消费（例如在班次存在后翻转合同状态）
type GenerationCompletedEvent struct {
	ContractID   int64     `json:"contractID"`
	From         string    `json:"from"` // "2006-01-02"
	To           string    `json:"to"`
	CreatedCount int       `json:"createdCount"`
	SkippedCount int       `json:"skippedCount"`
	SkipReasons  []string  `json:"skipReasons"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

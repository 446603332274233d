package domain

// 与合同管理服务之间的请求/响应消息体，日期统一使用 "2006-01-02" 格式

type HolidayCheckRequest struct {
	Date string `json:"date"`
}

type HolidayCheckReply struct {
	IsHoliday bool   `json:"isHoliday"`
	Name      string `json:"name"`
	Category  string `json:"category"`
}

type LocationClosedRequest struct {
	LocationID int64  `json:"locationID"`
	Date       string `json:"date"`
}

type LocationClosedReply struct {
	IsClosed bool   `json:"isClosed"`
	Reason   string `json:"reason"`
	DayType  string `json:"dayType"`
}

type ContractScheduleRequest struct {
	ContractID int64 `json:"contractID"`
}

type ContractScheduleReply struct {
	Contract  *Contract        `json:"contract"`
	Templates []*ShiftTemplate `json:"templates"`
	Locations []*Location      `json:"locations"`
}

package domain

import "time"

type Contract struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CustomerName string    `json:"customerName"`
	ManagerID    int64     `json:"managerID"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	IsActive     bool      `json:"isActive"`
	AutoGenerate bool      `json:"autoGenerate"` // 是否允许定时任务自动生成班次
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

type Location struct {
	ID         int64  `json:"id"`
	ContractID int64  `json:"contractID"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

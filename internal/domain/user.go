package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin      Role = "管理员"
	RoleManager    Role = "客户经理"
	RoleDispatcher Role = "调度员"
	RoleGuard      Role = "保安"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// CanGenerateShifts 判断该用户是否具有生成班次的权限
func (u *User) CanGenerateShifts() bool {
	if !u.IsActive {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleManager || u.Role == RoleDispatcher
}

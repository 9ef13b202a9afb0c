package model

import "time"

// 用户角色
const (
	RoleRegistered    = "registered"
	RoleAdministrator = "administrator"
)

// User 用户表，对应 users
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"                       json:"id"`
	Username     string    `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null"                     json:"-"`
	FirstName    string    `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null"                     json:"last_name"`
	StudentID    string    `gorm:"type:varchar(20);not null;uniqueIndex"          json:"student_id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Phone        string    `gorm:"type:varchar(20);not null;default:''"           json:"phone"`
	Role         string    `gorm:"type:varchar(20);not null;default:'registered'" json:"role"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdministrator }

package model

import (
	"time"
)

type UserRole string

const (
	Admin      UserRole = "ADMIN"
	Instructor UserRole = "INSTRUCTOR"
	Learner    UserRole = "LEARNER"
)

func (r UserRole) Valid() bool {
	switch r {
	case Admin, Instructor, Learner:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	SoftDelete
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:191;not null;index" json:"email"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	Role         UserRole   `gorm:"size:20;not null;default:'LEARNER'" json:"role"`
	IsFirstLogin bool       `gorm:"default:true" json:"isFirstLogin"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}

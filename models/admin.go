package models

import (
	"time"

	"gorm.io/gorm"

	"iface-http-service/utils"
)

// Admin represents system administrators
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(50);unique;not null" json:"username"`
	Password  string    `gorm:"type:varchar(100);not null" json:"-"` // Password not exposed in JSON
	Email     string    `gorm:"type:varchar(100);unique" json:"email"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave 是一个GORM钩子，在保存记录前运行
func (a *Admin) BeforeSave(tx *gorm.DB) error {
	// 如果提供了密码且不是已哈希的，对其进行哈希处理
	if a.Password != "" && len(a.Password) < 60 {
		hashedPassword, err := utils.HashPassword(a.Password)
		if err != nil {
			return err
		}
		a.Password = hashedPassword
	}
	return nil
}

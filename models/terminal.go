package models

import (
	"time"
)

// TerminalStatus represents the status of a biometric access terminal
type TerminalStatus string

const (
	TerminalStatusOnline  TerminalStatus = "online"
	TerminalStatusOffline TerminalStatus = "offline"
	TerminalStatusFault   TerminalStatus = "fault"
)

// Terminal represents biometric face terminals
type Terminal struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(50);not null" json:"name"`
	SerialNumber string         `gorm:"type:varchar(50);unique;not null" json:"serial_number"`
	Location     string         `gorm:"type:varchar(100)" json:"location"`
	Status       TerminalStatus `gorm:"type:varchar(20);default:'offline'" json:"status"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Relations
	Credential  *TerminalCredential     `gorm:"foreignKey:TerminalID" json:"credential,omitempty"`
	DeviceLinks []ProvisioningDeviceLink `gorm:"foreignKey:TerminalID" json:"device_links,omitempty"`
}

// TerminalCredential 终端的本地连接凭据。
// 凭据只保存在本服务的数据库中，绝不转发给中心存储，也不出现在JSON响应里。
// 过期时间一到凭据即视为不可用，与终端是否在线无关。
type TerminalCredential struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	TerminalID           uint       `gorm:"unique;not null" json:"terminal_id"`
	Host                 string     `gorm:"type:varchar(100);not null" json:"-"`
	Username             string     `gorm:"type:varchar(50);not null" json:"-"`
	Password             string     `gorm:"type:varchar(100);not null" json:"-"`
	CredentialsExpiresAt *time.Time `json:"credentials_expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsExpired 判断凭据是否已过期。没有设置过期时间的凭据永不过期。
func (c *TerminalCredential) IsExpired(now time.Time) bool {
	if c == nil || c.CredentialsExpiresAt == nil {
		return false
	}
	return now.After(*c.CredentialsExpiresAt)
}

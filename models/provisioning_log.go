package models

import (
	"time"
)

// ProvisioningLogLevel 审计日志级别
type ProvisioningLogLevel string

const (
	ProvisioningLogLevelInfo  ProvisioningLogLevel = "INFO"
	ProvisioningLogLevelWarn  ProvisioningLogLevel = "WARN"
	ProvisioningLogLevelError ProvisioningLogLevel = "ERROR"
)

// ProvisioningLog 导入/同步流程的审计事件，只追加不修改。
// 写入失败不能中断业务流程。
type ProvisioningLog struct {
	ID         uint                 `gorm:"primaryKey" json:"id"`
	StudentID  *uint                `gorm:"index" json:"student_id,omitempty"`
	TerminalID *uint                `gorm:"index" json:"terminal_id,omitempty"`
	JobID      string               `gorm:"type:varchar(40);index" json:"job_id,omitempty"`
	Level      ProvisioningLogLevel `gorm:"type:varchar(10);default:'INFO'" json:"level"`
	Stage      string               `gorm:"type:varchar(50);not null;index" json:"stage"`
	Status     string               `gorm:"type:varchar(20)" json:"status,omitempty"`
	Message    string               `gorm:"type:text" json:"message"`
	Payload    string               `gorm:"type:text" json:"payload,omitempty"` // JSON编码的附加数据
	CreatedAt  time.Time            `json:"created_at"`

	// Relations
	Student  *Student  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Terminal *Terminal `gorm:"foreignKey:TerminalID" json:"terminal,omitempty"`
}

package models

import (
	"time"
)

// ImportJobStatus 一次导入提交的状态机: PENDING → PROCESSING → SUCCESS | FAILED
type ImportJobStatus string

const (
	ImportJobStatusPending    ImportJobStatus = "PENDING"
	ImportJobStatusProcessing ImportJobStatus = "PROCESSING"
	ImportJobStatusSuccess    ImportJobStatus = "SUCCESS"
	ImportJobStatusFailed     ImportJobStatus = "FAILED"
)

// ImportJob represents one commit attempt of an import batch
type ImportJob struct {
	ID             string          `gorm:"type:varchar(40);primaryKey" json:"id"`
	IdempotencyKey string          `gorm:"type:varchar(80);index" json:"idempotency_key"` // 同一逻辑运行重试时复用
	Status         ImportJobStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	RetryCount     int             `json:"retry_count"`
	TotalRows      int             `json:"total_rows"`
	Processed      int             `json:"processed"`
	Success        int             `json:"success"`
	Failed         int             `json:"failed"`
	Synced         int             `json:"synced"`
	LastError      string          `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTerminal 判断任务是否已经到达终态
func (j *ImportJob) IsTerminal() bool {
	return j.Status == ImportJobStatusSuccess || j.Status == ImportJobStatusFailed
}

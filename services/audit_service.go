package services

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// AuditQuery 审计日志查询条件
type AuditQuery struct {
	Level   string `form:"level" json:"level"`
	Stage   string `form:"stage" json:"stage"`
	JobID   string `form:"jobId" json:"jobId"`
	Keyword string `form:"q" json:"q"`
	From    string `form:"from" json:"from"`
	To      string `form:"to" json:"to"`
	models.PaginationQuery
}

// InterfaceAuditService defines the audit sink interface
type InterfaceAuditService interface {
	Append(stage, message string, payload map[string]interface{})
	AppendForJob(jobID, stage, status, message string, payload map[string]interface{})
	AppendError(stage, message string, payload map[string]interface{})
	Query(query AuditQuery) ([]models.ProvisioningLog, int64, error)
}

// AuditService 只追加的审计事件服务。
// 所有写入都是尽力而为：失败只记日志，绝不中断业务流程。
type AuditService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewAuditService 创建一个新的审计服务
func NewAuditService(db *gorm.DB, cfg *config.Config) InterfaceAuditService {
	return &AuditService{
		DB:     db,
		Config: cfg,
	}
}

func (s *AuditService) append(level models.ProvisioningLogLevel, jobID, stage, status, message string, payload map[string]interface{}) {
	encoded := ""
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			encoded = string(data)
		}
	}

	entry := models.ProvisioningLog{
		JobID:   jobID,
		Level:   level,
		Stage:   stage,
		Status:  status,
		Message: message,
		Payload: encoded,
	}

	if err := s.DB.Create(&entry).Error; err != nil {
		// 审计失败被吞掉，不向操作者暴露
		config.Warning("审计事件写入失败 [%s]: %v", stage, err)
	}
}

// 1 Append 追加一条INFO级审计事件
func (s *AuditService) Append(stage, message string, payload map[string]interface{}) {
	s.append(models.ProvisioningLogLevelInfo, "", stage, "", message, payload)
}

// 2 AppendForJob 追加一条关联导入任务的审计事件
func (s *AuditService) AppendForJob(jobID, stage, status, message string, payload map[string]interface{}) {
	s.append(models.ProvisioningLogLevelInfo, jobID, stage, status, message, payload)
}

// 3 AppendError 追加一条ERROR级审计事件
func (s *AuditService) AppendError(stage, message string, payload map[string]interface{}) {
	s.append(models.ProvisioningLogLevelError, "", stage, "FAILED", message, payload)
}

// 4 Query 按条件分页查询审计日志
func (s *AuditService) Query(query AuditQuery) ([]models.ProvisioningLog, int64, error) {
	db := s.DB.Model(&models.ProvisioningLog{})

	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Stage != "" {
		db = db.Where("stage LIKE ?", "%"+query.Stage+"%")
	}
	if query.JobID != "" {
		db = db.Where("job_id = ?", query.JobID)
	}
	if query.Keyword != "" {
		keyword := "%" + query.Keyword + "%"
		db = db.Where("message LIKE ? OR stage LIKE ? OR status LIKE ?", keyword, keyword, keyword)
	}
	if query.From != "" {
		if from, err := time.Parse(time.RFC3339, query.From); err == nil {
			db = db.Where("created_at >= ?", from)
		}
	}
	if query.To != "" {
		if to, err := time.Parse(time.RFC3339, query.To); err == nil {
			db = db.Where("created_at <= ?", to)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageNum := query.PageNum
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var logs []models.ProvisioningLog
	err := db.Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Preload("Student").
		Preload("Terminal").
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

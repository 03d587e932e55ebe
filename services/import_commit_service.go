package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
	"iface-http-service/utils"
)

// ImportRowAction 预检/提交时对单行的处理决定
type ImportRowAction string

const (
	ImportRowActionCreate  ImportRowAction = "CREATE"
	ImportRowActionUpdate  ImportRowAction = "UPDATE"
	ImportRowActionSkip    ImportRowAction = "SKIP"
	ImportRowActionInvalid ImportRowAction = "INVALID"
)

// ImportRowInput 提交到后备存储的一行学生数据
type ImportRowInput struct {
	RowIndex         int    `json:"row_index"`
	ExternalID       string `json:"external_id" binding:"required"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	FatherName       string `json:"father_name"`
	Gender           string `json:"gender"`
	ClassID          uint   `json:"class_id"`
	ParentPhone      string `json:"parent_phone"`
	FaceImageBase64  string `json:"face_image_base64,omitempty"`
	SourceTerminalID uint   `json:"source_terminal_id"`
}

// ImportRowOutcome 单行提交的结果
type ImportRowOutcome struct {
	RowIndex   int             `json:"row_index"`
	ExternalID string          `json:"external_id"`
	Action     ImportRowAction `json:"action"`
	StudentID  uint            `json:"student_id,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ImportPreviewRow 预检时单行的分类结果
type ImportPreviewRow struct {
	RowIndex   int             `json:"row_index"`
	ExternalID string          `json:"external_id"`
	Action     ImportRowAction `json:"action"`
	Reason     string          `json:"reason,omitempty"`
}

// ImportPreviewResult 一次预检的行分类和计数汇总
type ImportPreviewResult struct {
	Total           int                `json:"total"`
	CreateCount     int                `json:"createCount"`
	UpdateCount     int                `json:"updateCount"`
	SkipCount       int                `json:"skipCount"`
	InvalidCount    int                `json:"invalidCount"`
	DuplicateCount  int                `json:"duplicateCount"`
	ClassErrorCount int                `json:"classErrorCount"`
	Rows            []ImportPreviewRow `json:"rows"`
}

// ImportCommitResult 一次提交的汇总结果，按幂等键缓存后可原样重放
type ImportCommitResult struct {
	IdempotencyKey string             `json:"idempotency_key"`
	Created        int                `json:"created"`
	Updated        int                `json:"updated"`
	Failed         int                `json:"failed"`
	Rows           []ImportRowOutcome `json:"rows"`
	Replayed       bool               `json:"replayed"`
}

// InterfaceImportCommitService defines the backing store commit interface
type InterfaceImportCommitService interface {
	Preview(rows []ImportRowInput) (*ImportPreviewResult, error)
	Commit(ctx context.Context, idempotencyKey string, rows []ImportRowInput) (*ImportCommitResult, error)
	CommitRow(row ImportRowInput) ImportRowOutcome
	GetJob(jobID string) (*models.ImportJob, error)
}

// ImportCommitService 把导入行写入后备存储。
// 提交按幂等键去重：同一个键24小时内重复提交直接返回缓存结果，不重复写库。
// 行与行互相隔离，一行失败不中断整批。
type ImportCommitService struct {
	DB     *gorm.DB
	Config *config.Config
	Redis  *RedisService
}

// NewImportCommitService 创建一个新的提交服务
func NewImportCommitService(db *gorm.DB, cfg *config.Config, redis *RedisService) InterfaceImportCommitService {
	return &ImportCommitService{
		DB:     db,
		Config: cfg,
		Redis:  redis,
	}
}

// validateRow 校验一行的必填字段，返回不合法原因
func validateRow(row ImportRowInput) string {
	if strings.TrimSpace(row.ExternalID) == "" {
		return "缺少学号"
	}
	if strings.TrimSpace(row.FirstName) == "" && strings.TrimSpace(row.LastName) == "" {
		return "缺少姓名"
	}
	if row.ClassID == 0 {
		return "缺少班级"
	}
	return ""
}

// 1 Preview 对一批行做只读预检，给出每行的CREATE/UPDATE/INVALID分类和计数汇总
func (s *ImportCommitService) Preview(rows []ImportRowInput) (*ImportPreviewResult, error) {
	result := &ImportPreviewResult{
		Total: len(rows),
		Rows:  make([]ImportPreviewRow, 0, len(rows)),
	}

	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		preview := ImportPreviewRow{
			RowIndex:   row.RowIndex,
			ExternalID: strings.TrimSpace(row.ExternalID),
		}

		if reason := validateRow(row); reason != "" {
			preview.Action = ImportRowActionInvalid
			preview.Reason = reason
			result.InvalidCount++
			result.Rows = append(result.Rows, preview)
			continue
		}

		key := strings.ToLower(preview.ExternalID)
		if seen[key] {
			// 批内重复：后到的行跳过，计入重复数
			preview.Action = ImportRowActionSkip
			preview.Reason = "批内重复学号"
			result.DuplicateCount++
			result.SkipCount++
			result.Rows = append(result.Rows, preview)
			continue
		}
		seen[key] = true

		var class models.Class
		if err := s.DB.First(&class, row.ClassID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				preview.Action = ImportRowActionInvalid
				preview.Reason = fmt.Sprintf("班级 %d 不存在", row.ClassID)
				result.ClassErrorCount++
				result.InvalidCount++
				result.Rows = append(result.Rows, preview)
				continue
			}
			return nil, err
		}

		var existing models.Student
		err := s.DB.Where("external_id = ?", preview.ExternalID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			preview.Action = ImportRowActionCreate
			result.CreateCount++
		} else if err != nil {
			return nil, err
		} else {
			preview.Action = ImportRowActionUpdate
			preview.Reason = fmt.Sprintf("已存在学生 #%d", existing.ID)
			result.UpdateCount++
		}

		result.Rows = append(result.Rows, preview)
	}

	return result, nil
}

// 2 CommitRow 在独立事务中提交单行。
// 行级隔离的关键：本行的任何错误只记在本行结果上，绝不影响其它行。
func (s *ImportCommitService) CommitRow(row ImportRowInput) ImportRowOutcome {
	outcome := ImportRowOutcome{
		RowIndex:   row.RowIndex,
		ExternalID: strings.TrimSpace(row.ExternalID),
	}

	if reason := validateRow(row); reason != "" {
		outcome.Action = ImportRowActionInvalid
		outcome.Error = reason
		return outcome
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var class models.Class
		if err := tx.First(&class, row.ClassID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("班级 %d 不存在", row.ClassID)
			}
			return err
		}

		firstName := utils.NormalizeNamePart(row.FirstName)
		lastName := utils.NormalizeNamePart(row.LastName)
		fullName := models.FullName(lastName, firstName)

		var student models.Student
		err := tx.Where("external_id = ?", outcome.ExternalID).First(&student).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			student = models.Student{
				ExternalID:  outcome.ExternalID,
				FirstName:   firstName,
				LastName:    lastName,
				FatherName:  utils.NormalizeNamePart(row.FatherName),
				Name:        fullName,
				Gender:      utils.NormalizeGender(row.Gender),
				ClassID:     row.ClassID,
				ParentPhone: strings.TrimSpace(row.ParentPhone),
				FaceImage:   row.FaceImageBase64,
				IsActive:    true,
			}
			if err := tx.Create(&student).Error; err != nil {
				return err
			}
			outcome.Action = ImportRowActionCreate
			outcome.StudentID = student.ID
			return nil
		}
		if err != nil {
			return err
		}

		student.FirstName = firstName
		student.LastName = lastName
		student.FatherName = utils.NormalizeNamePart(row.FatherName)
		student.Name = fullName
		student.Gender = utils.NormalizeGender(row.Gender)
		student.ClassID = row.ClassID
		if strings.TrimSpace(row.ParentPhone) != "" {
			student.ParentPhone = strings.TrimSpace(row.ParentPhone)
		}
		// 空人脸不覆盖已有人脸
		if row.FaceImageBase64 != "" {
			student.FaceImage = row.FaceImageBase64
		}
		if err := tx.Save(&student).Error; err != nil {
			return err
		}
		outcome.Action = ImportRowActionUpdate
		outcome.StudentID = student.ID
		return nil
	})

	if err != nil {
		outcome.Action = ImportRowActionInvalid
		outcome.Error = err.Error()
	}

	return outcome
}

// 3 Commit 按幂等键提交一批行。
// 命中重放缓存时直接返回缓存结果；否则对每个学号加行锁后逐行提交，
// 无法取到锁的行记为失败(另一次提交正在处理它)。
func (s *ImportCommitService) Commit(ctx context.Context, idempotencyKey string, rows []ImportRowInput) (*ImportCommitResult, error) {
	if idempotencyKey == "" {
		return nil, errors.New("缺少幂等键")
	}

	var cached ImportCommitResult
	if hit, err := s.Redis.GetIdempotentResult(idempotencyKey, &cached); err == nil && hit {
		cached.Replayed = true
		return &cached, nil
	}

	result := &ImportCommitResult{
		IdempotencyKey: idempotencyKey,
		Rows:           make([]ImportRowOutcome, 0, len(rows)),
	}

	var locked []string
	defer func() {
		s.Redis.ReleaseImportLocks(locked)
	}()

	for _, row := range rows {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		externalID := strings.TrimSpace(row.ExternalID)
		if externalID != "" {
			ok, err := s.Redis.AcquireImportLock(externalID, 2*time.Minute)
			if err == nil && !ok {
				result.Failed++
				result.Rows = append(result.Rows, ImportRowOutcome{
					RowIndex:   row.RowIndex,
					ExternalID: externalID,
					Action:     ImportRowActionInvalid,
					Error:      "学号正在被另一次导入处理",
				})
				continue
			}
			if err == nil && ok {
				locked = append(locked, externalID)
			}
		}

		outcome := s.CommitRow(row)
		switch outcome.Action {
		case ImportRowActionCreate:
			result.Created++
		case ImportRowActionUpdate:
			result.Updated++
		default:
			result.Failed++
		}
		result.Rows = append(result.Rows, outcome)
	}

	if err := s.Redis.CacheIdempotentResult(idempotencyKey, result); err != nil {
		config.Warning("幂等结果缓存失败 [%s]: %v", idempotencyKey, err)
	}

	return result, nil
}

// 4 GetJob 按ID获取导入任务
func (s *ImportCommitService) GetJob(jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := s.DB.Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("导入任务不存在")
		}
		return nil, err
	}
	return &job, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// SyncMode 下发目标的解析模式
type SyncMode string

const (
	SyncModeNone     SyncMode = "none"     // 不下发
	SyncModeCurrent  SyncMode = "current"  // 只下发到发现来源终端
	SyncModeAll      SyncMode = "all"      // 下发到所有已配置终端
	SyncModeSelected SyncMode = "selected" // 下发到显式选择的终端
)

// InterfaceSyncService defines the terminal fan-out service interface
type InterfaceSyncService interface {
	ResolveTargets(mode SyncMode, sourceTerminalID uint, selectedIDs []uint) ([]uint, error)
	SyncRecord(ctx context.Context, studentID uint, terminalIDs []uint) ([]TerminalSyncResult, error)
	GetRecord(recordID uint) (*models.ProvisioningRecord, error)
	GetRecordByStudent(studentID uint) (*models.ProvisioningRecord, error)
}

// SyncService 把一条登记记录下发到多个终端并聚合每个终端的结果
type SyncService struct {
	DB     *gorm.DB
	Config *config.Config
	Client InterfaceTerminalClient
}

// NewSyncService 创建一个新的下发服务
func NewSyncService(db *gorm.DB, cfg *config.Config, client InterfaceTerminalClient) InterfaceSyncService {
	return &SyncService{
		DB:     db,
		Config: cfg,
		Client: client,
	}
}

// ComputeProvisioningStatus 根据终端配对状态聚合登记记录状态。
// 全部SUCCESS为CONFIRMED，全部FAILED为FAILED，有失败有成功为PARTIAL，
// 其余(还有PENDING)为PROCESSING。
func ComputeProvisioningStatus(links []models.ProvisioningDeviceLink) models.ProvisioningStatus {
	if len(links) == 0 {
		return models.ProvisioningStatusProcessing
	}

	success := 0
	failed := 0
	for _, link := range links {
		switch link.Status {
		case models.DeviceLinkStatusSuccess:
			success++
		case models.DeviceLinkStatusFailed:
			failed++
		}
	}

	if success == len(links) {
		return models.ProvisioningStatusConfirmed
	}
	if failed == len(links) {
		return models.ProvisioningStatusFailed
	}
	if failed > 0 {
		return models.ProvisioningStatusPartial
	}
	return models.ProvisioningStatusProcessing
}

// AggregateSyncError 把失败终端的结果拼成一条错误。
// 全部成功时返回nil；否则列出每个失败终端及原因。
// 这是行级别的全有或全无约定，单终端结果仍然单独可见。
func AggregateSyncError(results []TerminalSyncResult) error {
	var parts []string
	for _, item := range results {
		if strings.ToUpper(item.Status) == "SUCCESS" {
			continue
		}
		label := item.TerminalName
		if label == "" {
			label = fmt.Sprintf("terminal-%d", item.TerminalID)
		}
		reason := item.LastError
		if reason == "" {
			reason = item.Status
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, reason))
	}

	if len(parts) == 0 {
		return nil
	}
	return errors.New(strings.Join(parts, "; "))
}

// 1 ResolveTargets 按模式解析下发目标终端列表
func (s *SyncService) ResolveTargets(mode SyncMode, sourceTerminalID uint, selectedIDs []uint) ([]uint, error) {
	switch mode {
	case SyncModeNone, "":
		return nil, nil
	case SyncModeCurrent:
		if sourceTerminalID == 0 {
			return nil, nil
		}
		return []uint{sourceTerminalID}, nil
	case SyncModeAll:
		var terminals []models.Terminal
		if err := s.DB.Where("is_active = ?", true).Order("id").Find(&terminals).Error; err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(terminals))
		for _, t := range terminals {
			ids = append(ids, t.ID)
		}
		return ids, nil
	case SyncModeSelected:
		return selectedIDs, nil
	default:
		return nil, fmt.Errorf("未知的下发模式: %s", mode)
	}
}

// 2 SyncRecord 把学生的登记记录下发到目标终端。
// 记录每个终端的配对结果，更新记录聚合状态；任一终端失败时
// 返回聚合错误，由调用方转成行级错误。
func (s *SyncService) SyncRecord(ctx context.Context, studentID uint, terminalIDs []uint) ([]TerminalSyncResult, error) {
	if len(terminalIDs) == 0 {
		return nil, nil
	}

	record, err := s.ensureRecord(studentID)
	if err != nil {
		return nil, err
	}

	record.Status = models.ProvisioningStatusProcessing
	if err := s.DB.Save(record).Error; err != nil {
		return nil, err
	}

	results, err := s.Client.SyncToTerminals(ctx, record.ID, terminalIDs)
	if err != nil {
		// 整体调用失败时所有目标都记为失败
		results = make([]TerminalSyncResult, 0, len(terminalIDs))
		for _, id := range terminalIDs {
			results = append(results, TerminalSyncResult{
				TerminalID: id,
				Status:     string(models.DeviceLinkStatusFailed),
				LastError:  err.Error(),
			})
		}
	}

	s.fillTerminalNames(results)

	if err := s.persistLinks(record, results); err != nil {
		return results, err
	}

	return results, AggregateSyncError(results)
}

// 3 GetRecord 按ID获取登记记录及其终端配对
func (s *SyncService) GetRecord(recordID uint) (*models.ProvisioningRecord, error) {
	var record models.ProvisioningRecord
	if err := s.DB.Preload("DeviceLinks").Preload("DeviceLinks.Terminal").Preload("Student").First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("登记记录不存在")
		}
		return nil, err
	}
	return &record, nil
}

// 4 GetRecordByStudent 按学生ID获取登记记录
func (s *SyncService) GetRecordByStudent(studentID uint) (*models.ProvisioningRecord, error) {
	var record models.ProvisioningRecord
	if err := s.DB.Preload("DeviceLinks").Preload("DeviceLinks.Terminal").Where("student_id = ?", studentID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("登记记录不存在")
		}
		return nil, err
	}
	return &record, nil
}

// ensureRecord 获取或创建学生的登记记录。记录ID由存储层生成，本服务绝不自造。
func (s *SyncService) ensureRecord(studentID uint) (*models.ProvisioningRecord, error) {
	var record models.ProvisioningRecord
	err := s.DB.Where("student_id = ?", studentID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.ProvisioningRecord{
			StudentID: studentID,
			Status:    models.ProvisioningStatusPending,
		}
		if err := s.DB.Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// fillTerminalNames 补全结果中缺失的终端名称
func (s *SyncService) fillTerminalNames(results []TerminalSyncResult) {
	for i := range results {
		if results[i].TerminalName != "" {
			continue
		}
		var terminal models.Terminal
		if err := s.DB.First(&terminal, results[i].TerminalID).Error; err == nil {
			results[i].TerminalName = terminal.Name
		}
	}
}

// persistLinks 落库每个终端的配对结果并更新记录聚合状态
func (s *SyncService) persistLinks(record *models.ProvisioningRecord, results []TerminalSyncResult) error {
	var student models.Student
	if err := s.DB.First(&student, record.StudentID).Error; err != nil {
		return err
	}

	for _, item := range results {
		status := models.DeviceLinkStatusFailed
		if strings.ToUpper(item.Status) == "SUCCESS" {
			status = models.DeviceLinkStatusSuccess
		}

		var link models.ProvisioningDeviceLink
		err := s.DB.Where("provisioning_record_id = ? AND terminal_id = ?", record.ID, item.TerminalID).First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			link = models.ProvisioningDeviceLink{
				ProvisioningRecordID: record.ID,
				TerminalID:           item.TerminalID,
			}
		} else if err != nil {
			return err
		}

		link.Status = status
		link.EmployeeNoOnTerminal = student.ExternalID
		link.LastError = item.LastError
		if err := s.DB.Save(&link).Error; err != nil {
			return err
		}
	}

	var links []models.ProvisioningDeviceLink
	if err := s.DB.Where("provisioning_record_id = ?", record.ID).Find(&links).Error; err != nil {
		return err
	}

	record.Status = ComputeProvisioningStatus(links)
	if aggErr := AggregateSyncError(results); aggErr != nil {
		record.LastError = aggErr.Error()
	} else {
		record.LastError = ""
	}
	return s.DB.Save(record).Error
}

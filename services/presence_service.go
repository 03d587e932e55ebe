package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// TerminalPresenceResult 单个终端上的存在性检查结果
type TerminalPresenceResult struct {
	TerminalID   uint           `json:"terminal_id"`
	TerminalName string         `json:"terminal_name"`
	Status       PresenceStatus `json:"status"`
	Message      string         `json:"message,omitempty"`
}

// PresenceReport 一次存在性检查的完整报告
type PresenceReport struct {
	StudentID  uint                     `json:"student_id"`
	ExternalID string                   `json:"external_id"`
	Results    []TerminalPresenceResult `json:"results"`
	Summary    string                   `json:"summary"`
}

// InterfacePresenceService defines the live presence check interface
type InterfacePresenceService interface {
	CheckStudent(ctx context.Context, studentID uint) (*PresenceReport, error)
	CheckStudentOnTerminals(ctx context.Context, studentID uint, terminalIDs []uint) (*PresenceReport, error)
}

// PresenceService 在线检查学生在各终端上的实际登记状态。
// 每个终端独立探测并得到一个终态，单终端的失败不影响其它终端。
type PresenceService struct {
	DB          *gorm.DB
	Config      *config.Config
	Client      InterfaceTerminalClient
	Credentials InterfaceCredentialService
	MQTT        InterfaceMQTTService
}

// NewPresenceService 创建一个新的存在性检查服务
func NewPresenceService(db *gorm.DB, cfg *config.Config, client InterfaceTerminalClient, credentials InterfaceCredentialService, mqttService InterfaceMQTTService) InterfacePresenceService {
	return &PresenceService{
		DB:          db,
		Config:      cfg,
		Client:      client,
		Credentials: credentials,
		MQTT:        mqttService,
	}
}

// ComputePresenceSummary 根据各终端的结果拼出汇总文案。
// pending>0 时报告进行中；全部结束后有问题报问题数，否则报OK。
func ComputePresenceSummary(results []TerminalPresenceResult, pending int) string {
	total := len(results) + pending
	if total == 0 {
		return "OK 0/0"
	}
	if pending == total {
		return "Tekshirilmoqda..."
	}
	if pending > 0 {
		return fmt.Sprintf("Jarayonda %d/%d", len(results), total)
	}

	present := 0
	problems := 0
	for _, item := range results {
		if item.Status == PresenceStatusPresent {
			present++
		} else {
			problems++
		}
	}
	if problems > 0 {
		return fmt.Sprintf("Muammo %d", problems)
	}
	return fmt.Sprintf("OK %d/%d", present, total)
}

// probe 探测单个终端上某工号的存在性，把凭据和网络问题折算成终态
func (s *PresenceService) probe(ctx context.Context, terminal models.Terminal, employeeNo string) TerminalPresenceResult {
	result := TerminalPresenceResult{
		TerminalID:   terminal.ID,
		TerminalName: terminal.Name,
	}

	cred, _, err := s.Credentials.ResolveUsable(terminal.ID)
	if err != nil {
		var deviceErr *DeviceError
		if errors.As(err, &deviceErr) {
			switch deviceErr.Code {
			case DeviceErrCodeCredentialsNotFound:
				result.Status = PresenceStatusNoCredentials
			case DeviceErrCodeCredentialsExpired:
				result.Status = PresenceStatusExpired
			default:
				result.Status = PresenceStatusError
			}
		} else {
			result.Status = PresenceStatusError
		}
		result.Message = err.Error()
		return result
	}

	if err := s.Client.TestConnection(ctx, cred); err != nil {
		result.Status = PresenceStatusOffline
		result.Message = err.Error()
		return result
	}

	probe, err := s.Client.PresenceCheck(ctx, cred, employeeNo)
	if err != nil {
		result.Status = PresenceStatusError
		result.Message = err.Error()
		return result
	}

	result.Status = probe.Status
	result.Message = probe.Message
	return result
}

// 1 CheckStudent 检查学生在所有启用终端上的存在性
func (s *PresenceService) CheckStudent(ctx context.Context, studentID uint) (*PresenceReport, error) {
	var terminals []models.Terminal
	if err := s.DB.Where("is_active = ?", true).Order("id").Find(&terminals).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(terminals))
	for _, t := range terminals {
		ids = append(ids, t.ID)
	}
	return s.CheckStudentOnTerminals(ctx, studentID, ids)
}

// 2 CheckStudentOnTerminals 检查学生在指定终端集合上的存在性。
// 各终端并发探测，每个终端恰好得到一个终态。
func (s *PresenceService) CheckStudentOnTerminals(ctx context.Context, studentID uint, terminalIDs []uint) (*PresenceReport, error) {
	var student models.Student
	if err := s.DB.First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("学生不存在")
		}
		return nil, err
	}

	report := &PresenceReport{
		StudentID:  student.ID,
		ExternalID: student.ExternalID,
		Results:    make([]TerminalPresenceResult, 0, len(terminalIDs)),
	}
	if len(terminalIDs) == 0 {
		report.Summary = ComputePresenceSummary(nil, 0)
		return report, nil
	}

	results := make([]TerminalPresenceResult, len(terminalIDs))
	var wg sync.WaitGroup
	wg.Add(len(terminalIDs))

	for i, terminalID := range terminalIDs {
		go func(i int, terminalID uint) {
			defer wg.Done()

			var terminal models.Terminal
			if err := s.DB.First(&terminal, terminalID).Error; err != nil {
				results[i] = TerminalPresenceResult{
					TerminalID: terminalID,
					Status:     PresenceStatusError,
					Message:    NewDeviceError(DeviceErrCodeNotFound, "", "").Error(),
				}
				return
			}

			results[i] = s.probe(ctx, terminal, student.ExternalID)
		}(i, terminalID)
	}
	wg.Wait()

	report.Results = results
	report.Summary = ComputePresenceSummary(results, 0)

	s.MQTT.PublishPresenceResult(student.ID, report)
	return report, nil
}

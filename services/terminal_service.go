package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// CreateTerminalRequest 创建终端的请求参数
type CreateTerminalRequest struct {
	Name         string `json:"name" binding:"required"`
	SerialNumber string `json:"serial_number" binding:"required"`
	Location     string `json:"location"`
}

// UpdateTerminalRequest 更新终端的请求参数
type UpdateTerminalRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	IsActive *bool  `json:"is_active"`
}

// UpsertCredentialRequest 写入终端本地凭据的请求参数
type UpsertCredentialRequest struct {
	Host      string     `json:"host" binding:"required"`
	Username  string     `json:"username" binding:"required"`
	Password  string     `json:"password"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// InterfaceTerminalService defines the terminal service interface
type InterfaceTerminalService interface {
	GetAllTerminals(query models.PaginationQuery) ([]models.Terminal, int64, error)
	GetTerminalByID(terminalID uint) (*models.Terminal, error)
	CreateTerminal(req CreateTerminalRequest) (*models.Terminal, error)
	UpdateTerminal(terminalID uint, req UpdateTerminalRequest) (*models.Terminal, error)
	DeleteTerminal(terminalID uint) error
	TestTerminal(ctx context.Context, terminalID uint) (*models.Terminal, error)
	CollectCandidates(ctx context.Context, terminalIDs []uint) (*DedupeResult, error)
}

// TerminalService 终端的增删改查和候选人发现
type TerminalService struct {
	DB          *gorm.DB
	Config      *config.Config
	Client      InterfaceTerminalClient
	Credentials InterfaceCredentialService
}

// 发现流程每页拉取的人员数量
const discoveryPageSize = 30

// NewTerminalService 创建一个新的终端服务
func NewTerminalService(db *gorm.DB, cfg *config.Config, client InterfaceTerminalClient, credentials InterfaceCredentialService) InterfaceTerminalService {
	return &TerminalService{
		DB:          db,
		Config:      cfg,
		Client:      client,
		Credentials: credentials,
	}
}

// 1 GetAllTerminals 分页获取所有终端列表
func (s *TerminalService) GetAllTerminals(query models.PaginationQuery) ([]models.Terminal, int64, error) {
	pageNum := query.PageNum
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.DB.Model(&models.Terminal{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var terminals []models.Terminal
	err := s.DB.Order("id").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&terminals).Error
	if err != nil {
		return nil, 0, err
	}
	return terminals, total, nil
}

// 2 GetTerminalByID 按ID获取终端
func (s *TerminalService) GetTerminalByID(terminalID uint) (*models.Terminal, error) {
	var terminal models.Terminal
	if err := s.DB.First(&terminal, terminalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDeviceError(DeviceErrCodeNotFound, "", "")
		}
		return nil, err
	}
	return &terminal, nil
}

// 3 CreateTerminal 创建一个新终端，序列号必须唯一
func (s *TerminalService) CreateTerminal(req CreateTerminalRequest) (*models.Terminal, error) {
	var count int64
	if err := s.DB.Model(&models.Terminal{}).Where("serial_number = ?", req.SerialNumber).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("终端序列号已存在")
	}

	terminal := models.Terminal{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		Status:       models.TerminalStatusOffline,
		IsActive:     true,
	}
	if err := s.DB.Create(&terminal).Error; err != nil {
		return nil, err
	}
	return &terminal, nil
}

// 4 UpdateTerminal 更新终端信息
func (s *TerminalService) UpdateTerminal(terminalID uint, req UpdateTerminalRequest) (*models.Terminal, error) {
	terminal, err := s.GetTerminalByID(terminalID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		terminal.Name = req.Name
	}
	if req.Location != "" {
		terminal.Location = req.Location
	}
	if req.IsActive != nil {
		terminal.IsActive = *req.IsActive
	}

	if err := s.DB.Save(terminal).Error; err != nil {
		return nil, err
	}
	return terminal, nil
}

// 5 DeleteTerminal 删除终端及其本地凭据
func (s *TerminalService) DeleteTerminal(terminalID uint) error {
	terminal, err := s.GetTerminalByID(terminalID)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("terminal_id = ?", terminalID).Delete(&models.TerminalCredential{}).Error; err != nil {
			return err
		}
		return tx.Delete(terminal).Error
	})
}

// 6 TestTerminal 测试终端连通性并更新其在线状态
func (s *TerminalService) TestTerminal(ctx context.Context, terminalID uint) (*models.Terminal, error) {
	cred, terminal, err := s.Credentials.ResolveUsable(terminalID)
	if err != nil {
		if terminal != nil {
			terminal.Status = models.TerminalStatusFault
			s.DB.Save(terminal)
		}
		return terminal, err
	}

	if err := s.Client.TestConnection(ctx, cred); err != nil {
		terminal.Status = models.TerminalStatusOffline
		s.DB.Save(terminal)
		return terminal, err
	}

	terminal.Status = models.TerminalStatusOnline
	if err := s.DB.Save(terminal).Error; err != nil {
		return terminal, err
	}
	return terminal, nil
}

// 7 CollectCandidates 从一组终端分页拉取全部人员并做归一化去重。
// 单个终端不可达或凭据不可用时整个终端被跳过，其余终端照常发现。
func (s *TerminalService) CollectCandidates(ctx context.Context, terminalIDs []uint) (*DedupeResult, error) {
	if len(terminalIDs) == 0 {
		return nil, errors.New("未指定发现终端")
	}

	var raw []RawCandidate
	for _, terminalID := range terminalIDs {
		cred, terminal, err := s.Credentials.ResolveUsable(terminalID)
		if err != nil {
			config.Warning("发现流程跳过终端 %d: %v", terminalID, err)
			continue
		}

		offset := 0
		for {
			page, err := s.Client.ListPersons(ctx, cred, offset, discoveryPageSize)
			if err != nil {
				config.Warning("终端 %s 人员列表拉取失败: %v", terminal.Name, err)
				break
			}

			for _, person := range page.Persons {
				raw = append(raw, RawCandidate{
					ExternalID:       person.EmployeeNo,
					DisplayName:      person.Name,
					GenderRaw:        person.Gender,
					FaceCount:        person.NumOfFace,
					SourceTerminalID: terminalID,
				})
			}

			offset += len(page.Persons)
			if len(page.Persons) == 0 || offset >= page.Total {
				break
			}
		}
	}

	result := NormalizeAndDedupeCandidates(raw)
	return &result, nil
}

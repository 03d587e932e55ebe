package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// InterfaceCredentialService defines the terminal credential service interface
type InterfaceCredentialService interface {
	ResolveUsable(terminalID uint) (*models.TerminalCredential, *models.Terminal, error)
	Resolve(terminalID uint) (*models.TerminalCredential, *models.Terminal, error)
	Upsert(terminalID uint, host, username, password string, expiresAt *time.Time) (*models.TerminalCredential, error)
	HasUsable(terminalID uint) bool
}

// CredentialService 管理终端的本地连接凭据。
// 凭据是本地数据，任何流程都只读取不并发改写；过期即不可用，与网络可达性无关。
type CredentialService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewCredentialService 创建一个新的凭据服务
func NewCredentialService(db *gorm.DB, cfg *config.Config) InterfaceCredentialService {
	return &CredentialService{
		DB:     db,
		Config: cfg,
	}
}

// 1 Resolve 解析终端对应的本地凭据，不检查过期
func (s *CredentialService) Resolve(terminalID uint) (*models.TerminalCredential, *models.Terminal, error) {
	var terminal models.Terminal
	if err := s.DB.First(&terminal, terminalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewDeviceError(DeviceErrCodeNotFound, "", "")
		}
		return nil, nil, err
	}

	var cred models.TerminalCredential
	if err := s.DB.Where("terminal_id = ?", terminalID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &terminal, NewDeviceError(DeviceErrCodeCredentialsNotFound, terminal.Name, "")
		}
		return nil, &terminal, err
	}

	return &cred, &terminal, nil
}

// 2 ResolveUsable 解析终端对应的可用凭据，过期凭据视为不可用
func (s *CredentialService) ResolveUsable(terminalID uint) (*models.TerminalCredential, *models.Terminal, error) {
	cred, terminal, err := s.Resolve(terminalID)
	if err != nil {
		return nil, terminal, err
	}

	if cred.IsExpired(time.Now()) {
		return nil, terminal, NewDeviceError(DeviceErrCodeCredentialsExpired, terminal.Name, "")
	}

	return cred, terminal, nil
}

// 3 Upsert 创建或更新终端的本地凭据
func (s *CredentialService) Upsert(terminalID uint, host, username, password string, expiresAt *time.Time) (*models.TerminalCredential, error) {
	var terminal models.Terminal
	if err := s.DB.First(&terminal, terminalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDeviceError(DeviceErrCodeNotFound, "", "")
		}
		return nil, err
	}

	var cred models.TerminalCredential
	err := s.DB.Where("terminal_id = ?", terminalID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cred = models.TerminalCredential{
			TerminalID:           terminalID,
			Host:                 host,
			Username:             username,
			Password:             password,
			CredentialsExpiresAt: expiresAt,
		}
		if err := s.DB.Create(&cred).Error; err != nil {
			return nil, err
		}
		return &cred, nil
	}
	if err != nil {
		return nil, err
	}

	cred.Host = host
	cred.Username = username
	if password != "" {
		cred.Password = password
	}
	cred.CredentialsExpiresAt = expiresAt
	if err := s.DB.Save(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// 4 HasUsable 判断终端是否存在未过期的本地凭据
func (s *CredentialService) HasUsable(terminalID uint) bool {
	cred, _, err := s.ResolveUsable(terminalID)
	return err == nil && cred != nil
}

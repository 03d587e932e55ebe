package services

import (
	"context"

	"iface-http-service/models"
)

// PresenceStatus 单个终端在线存在性检查的终态
type PresenceStatus string

const (
	PresenceStatusPresent       PresenceStatus = "PRESENT"
	PresenceStatusAbsent        PresenceStatus = "ABSENT"
	PresenceStatusOffline       PresenceStatus = "OFFLINE"
	PresenceStatusExpired       PresenceStatus = "EXPIRED"
	PresenceStatusNoCredentials PresenceStatus = "NO_CREDENTIALS"
	PresenceStatusError         PresenceStatus = "ERROR"
)

// TerminalPerson 终端上登记的一个人员记录
type TerminalPerson struct {
	EmployeeNo string `json:"employee_no"`
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	NumOfFace  int    `json:"num_of_face"`
}

// TerminalPersonPage 终端人员列表的一页
type TerminalPersonPage struct {
	Persons []TerminalPerson `json:"persons"`
	Total   int              `json:"total"`
}

// TerminalPersonInput 写入终端的人员数据
type TerminalPersonInput struct {
	EmployeeNo      string `json:"employee_no"`
	Name            string `json:"name"`
	Gender          string `json:"gender"`
	FaceImageBase64 string `json:"face_image_base64,omitempty"`
}

// TerminalSyncResult 一次下发中单个终端的结果
type TerminalSyncResult struct {
	TerminalID   uint   `json:"terminal_id"`
	TerminalName string `json:"terminal_name,omitempty"`
	Status       string `json:"status"` // SUCCESS | FAILED | PENDING
	LastError    string `json:"last_error,omitempty"`
}

// PresenceProbeResult 单个终端的存在性探测结果
type PresenceProbeResult struct {
	Status  PresenceStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// InterfaceTerminalClient 终端客户端抽象。
// 本服务不实现底层连线协议(摘要认证等)，只依赖这组能力；
// 所有调用都必须受调用方传入的context和客户端内部超时约束。
type InterfaceTerminalClient interface {
	TestConnection(ctx context.Context, cred *models.TerminalCredential) error
	ListPersons(ctx context.Context, cred *models.TerminalCredential, offset, limit int) (*TerminalPersonPage, error)
	CreateOrRecreatePerson(ctx context.Context, cred *models.TerminalCredential, person TerminalPersonInput) error
	DeletePerson(ctx context.Context, cred *models.TerminalCredential, employeeNo string) error
	FetchFace(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (string, error)
	PresenceCheck(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (*PresenceProbeResult, error)
	SyncToTerminals(ctx context.Context, recordID uint, terminalIDs []uint) ([]TerminalSyncResult, error)
}

package models

import (
	"time"
)

// ProvisioningStatus 一条登记意图记录的聚合状态
type ProvisioningStatus string

const (
	ProvisioningStatusPending    ProvisioningStatus = "PENDING"
	ProvisioningStatusProcessing ProvisioningStatus = "PROCESSING"
	ProvisioningStatusPartial    ProvisioningStatus = "PARTIAL"
	ProvisioningStatusConfirmed  ProvisioningStatus = "CONFIRMED"
	ProvisioningStatusFailed     ProvisioningStatus = "FAILED"
)

// DeviceLinkStatus 单个(记录, 终端)配对的同步状态
type DeviceLinkStatus string

const (
	DeviceLinkStatusPending DeviceLinkStatus = "PENDING"
	DeviceLinkStatusSuccess DeviceLinkStatus = "SUCCESS"
	DeviceLinkStatusFailed  DeviceLinkStatus = "FAILED"
)

// ProvisioningRecord represents one person's enrollment intent across the fleet
type ProvisioningRecord struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	StudentID uint               `gorm:"unique;not null" json:"student_id"`
	Status    ProvisioningStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	LastError string             `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	// Relations
	Student     *Student                 `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	DeviceLinks []ProvisioningDeviceLink `gorm:"foreignKey:ProvisioningRecordID" json:"device_links,omitempty"`
}

// ProvisioningDeviceLink represents the pairing between one record and one terminal
type ProvisioningDeviceLink struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	ProvisioningRecordID uint             `gorm:"not null;index:idx_record_terminal,unique" json:"provisioning_record_id"`
	TerminalID           uint             `gorm:"not null;index:idx_record_terminal,unique" json:"terminal_id"`
	Status               DeviceLinkStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	EmployeeNoOnTerminal string           `gorm:"type:varchar(50)" json:"employee_no_on_terminal,omitempty"`
	LastError            string           `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	// Relations
	Terminal *Terminal `gorm:"foreignKey:TerminalID" json:"terminal,omitempty"`
}

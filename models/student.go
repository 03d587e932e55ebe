package models

import (
	"time"
)

// Student represents the canonical record of one enrolled person
type Student struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalID  string    `gorm:"type:varchar(50);unique;not null" json:"external_id"` // 终端上的工号/学号
	FirstName   string    `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName    string    `gorm:"type:varchar(50);not null" json:"last_name"`
	FatherName  string    `gorm:"type:varchar(50)" json:"father_name"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name"` // 完整姓名，由姓和名拼接
	Gender      string    `gorm:"type:varchar(10);default:'male'" json:"gender"`
	ClassID     uint      `gorm:"not null" json:"class_id"`
	ParentPhone string    `gorm:"type:varchar(20)" json:"parent_phone"`
	FaceImage   string    `gorm:"type:longtext" json:"face_image,omitempty"` // base64人脸图片
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Class        *Class              `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	Provisioning *ProvisioningRecord `gorm:"foreignKey:StudentID" json:"provisioning,omitempty"`
}

// FullName 按 姓+名 顺序拼接完整姓名
func FullName(lastName, firstName string) string {
	if lastName == "" {
		return firstName
	}
	if firstName == "" {
		return lastName
	}
	return lastName + " " + firstName
}

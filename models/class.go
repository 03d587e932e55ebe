package models

import (
	"time"
)

// Class represents school classes students are enrolled into
type Class struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`
	Grade     int       `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Students []Student `gorm:"foreignKey:ClassID" json:"students,omitempty"`
}

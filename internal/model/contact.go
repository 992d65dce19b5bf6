package model

import (
	"time"

	"gorm.io/datatypes"
)

// Contact belongs to exactly one user. Email is unique across all contacts.
type Contact struct {
	ID             uint           `gorm:"primaryKey"`
	FirstName      string         `gorm:"column:first_name;size:50;not null"`
	LastName       string         `gorm:"column:last_name;size:50;not null"`
	Email          string         `gorm:"column:email;size:100;uniqueIndex;not null"`
	Phone          string         `gorm:"column:phone;size:20;not null"`
	Birthday       datatypes.Date `gorm:"column:birthday;not null"`
	AdditionalInfo *string        `gorm:"column:additional_info;size:250"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	OwnerID        uint           `gorm:"column:owner_id;not null;index"`
	Owner          *User          `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}
